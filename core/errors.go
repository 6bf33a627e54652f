package core

import (
	"errors"
	"fmt"
)

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX），兼容 fmt.Errorf("%w") 包装
//
// 使用场景：
//   - 配置错误：CONFIGURATION（特征/模型定义非法，加载或 reload 时暴露）
//   - 请求级错误：UNKNOWN_FEATURE, MODEL_NOT_FOUND, INVALID_INPUT
//   - Store 错误：NOT_FOUND
type DomainError struct {
	Code    string // 错误代码（如 "CONFIGURATION", "MODEL_NOT_FOUND"）
	Message string // 错误消息
	Module  string // 模块名称（如 "feature", "model", "registry"）
	Err     error  // 底层错误（可选）
}

func (e *DomainError) Error() string {
	return e.Message
}

func (e *DomainError) Unwrap() error { return e.Err }

// IsDomainError 检查错误链中是否存在 DomainError
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取错误链中的 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// WrapError 创建携带底层错误的领域错误，消息为 "message: err"。
func WrapError(module, code, message string, err error) *DomainError {
	if err == nil {
		return NewDomainError(module, code, message)
	}
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message + ": " + err.Error(),
		Err:     err,
	}
}

// Errorf 按格式创建领域错误；若参数中含 %w，底层错误会保留在 Err 中。
func Errorf(module, code, format string, args ...any) *DomainError {
	wrapped := fmt.Errorf(format, args...)
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: wrapped.Error(),
		Err:     errors.Unwrap(wrapped),
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误

	ErrorCodeConfiguration  = "CONFIGURATION"   // 特征/模型定义非法
	ErrorCodeUnknownFeature = "UNKNOWN_FEATURE" // 特征在 FeatureStore 中不存在
	ErrorCodeModelNotFound  = "MODEL_NOT_FOUND" // 模型未注册
)

// 模块名称常量
const (
	ModuleStore    = "store"    // 存储模块
	ModuleFeature  = "feature"  // 特征模块
	ModuleModel    = "model"    // 模型模块
	ModuleRegistry = "registry" // 定义注册表
	ModuleRerank   = "rerank"   // 重排模块
	ModuleShard    = "shard"    // 分片合并
)

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool { return hasCode(err, ErrorCodeNotFound) }

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool { return hasCode(err, ErrorCodeUnavailable) }

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool { return hasCode(err, ErrorCodeInvalidInput) }

// IsConfigurationError 检查错误是否为 CONFIGURATION
func IsConfigurationError(err error) bool { return hasCode(err, ErrorCodeConfiguration) }

// IsUnknownFeature 检查错误是否为 UNKNOWN_FEATURE
func IsUnknownFeature(err error) bool { return hasCode(err, ErrorCodeUnknownFeature) }

// IsModelNotFound 检查错误是否为 MODEL_NOT_FOUND
func IsModelNotFound(err error) bool { return hasCode(err, ErrorCodeModelNotFound) }
