// Package registry 管理特征库与模型的定义，并以不可变 Snapshot 的形式提供给查询。
//
// 读路径无锁：查询通过 Snapshot() 取得当前快照（atomic.Pointer）。
// 写路径串行：Put*/Delete* 只修改待生效的定义（并写入持久化存储），
// Reload 基于待生效定义构建完整的新快照并原子替换；构建失败时旧快照保持不变。
package registry

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/rushteam/ltr/core"
	"github.com/rushteam/ltr/feature"
	"github.com/rushteam/ltr/model"
)

// Observer 接收 reload 结果，metrics.Metrics 实现了该接口。
type Observer interface {
	ReloadDone(err error)
}

// Registry 是定义注册表。零值不可用，请使用 New。
type Registry struct {
	mu      sync.Mutex // 串行化写操作
	current atomic.Pointer[Snapshot]
	staged  Definitions
	version uint64

	persist  *persister
	logger   *zap.Logger
	observer Observer
}

// Option Registry 配置选项
type Option func(*Registry)

// WithStore 使用 KeyValueStore 持久化定义；Reload 时从存储重新读取。
func WithStore(kv core.KeyValueStore) Option {
	return func(r *Registry) {
		if kv != nil {
			r.persist = &persister{kv: kv}
		}
	}
}

// WithLogger 设置日志
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithObserver 设置 reload 观察者
func WithObserver(o Observer) Option {
	return func(r *Registry) {
		r.observer = o
	}
}

func New(opts ...Option) *Registry {
	r := &Registry{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	r.current.Store(emptySnapshot())
	return r
}

// Snapshot 返回当前生效的快照，不会阻塞。
func (r *Registry) Snapshot() *Snapshot {
	return r.current.Load()
}

// Staged 返回待生效定义的副本。
func (r *Registry) Staged() Definitions {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.staged.Clone()
}

// PutFeature 按 (store, name) 写入特征定义（幂等覆盖）。定义立即校验，
// 非法时返回 CONFIGURATION 且不产生任何修改；需调用 Reload 才对查询生效。
func (r *Registry) PutFeature(ctx context.Context, def feature.Definition) error {
	if _, err := feature.Build(def); err != nil {
		return err
	}
	def.Store = def.StoreName()

	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.staged.Clone()
	next.putFeature(def)
	// 与模型之间的交叉校验在 Reload 时进行
	if r.persist != nil {
		if err := r.persist.saveStores(ctx, next, def.Store); err != nil {
			return err
		}
	}
	r.staged = next
	r.logger.Debug("feature staged", zap.String("store", def.Store), zap.String("feature", def.Name))
	return nil
}

// PutModel 按 name 写入模型定义（幂等覆盖）。模型会立即针对待生效的特征库构建，
// 引用不存在的特征、未知权重等都返回 CONFIGURATION。
func (r *Registry) PutModel(ctx context.Context, def model.Definition) error {
	def.Store = def.StoreName()

	r.mu.Lock()
	defer r.mu.Unlock()

	fs, err := feature.LoadStore(def.Store, r.staged.StoreFeatures(def.Store))
	if err != nil {
		return err
	}
	if fs.Len() == 0 {
		fs = nil
	}
	if _, err := model.Load(def, fs); err != nil {
		return err
	}

	next := r.staged.Clone()
	next.putModel(def)
	if r.persist != nil {
		if err := r.persist.saveModel(ctx, def); err != nil {
			return err
		}
	}
	r.staged = next
	r.logger.Debug("model staged", zap.String("model", def.Name), zap.String("store", def.Store))
	return nil
}

// DeleteModel 删除模型定义，不存在时返回 NOT_FOUND。
func (r *Registry) DeleteModel(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.staged.Clone()
	if !next.deleteModel(name) {
		return core.Errorf(core.ModuleRegistry, core.ErrorCodeNotFound, "model %q not found", name)
	}
	if r.persist != nil {
		if err := r.persist.deleteModel(ctx, name); err != nil {
			return err
		}
	}
	r.staged = next
	return nil
}

// DeleteFeatureStore 删除整个特征库。仍被模型引用时返回 CONFIGURATION。
func (r *Registry) DeleteFeatureStore(ctx context.Context, store string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.staged.Models {
		if m.StoreName() == store {
			return core.Errorf(core.ModuleRegistry, core.ErrorCodeConfiguration,
				"feature store %q is used by model %q", store, m.Name)
		}
	}
	next := r.staged.Clone()
	if !next.deleteStore(store) {
		return core.Errorf(core.ModuleRegistry, core.ErrorCodeNotFound, "feature store %q not found", store)
	}
	if r.persist != nil {
		if err := r.persist.deleteStore(ctx, store); err != nil {
			return err
		}
	}
	r.staged = next
	return nil
}

// Replace 用 defs 整体替换定义并立即生效。defs 非法时什么都不改变。
func (r *Registry) Replace(ctx context.Context, defs Definitions) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, err := Build(defs)
	if err != nil {
		r.notify(err)
		return nil, err
	}
	if r.persist != nil {
		if err := r.persist.replace(ctx, snap.defs); err != nil {
			r.notify(err)
			return nil, err
		}
	}
	r.staged = snap.defs.Clone()
	r.install(snap)
	return snap, nil
}

// Reload 构建并安装新的快照：配置了持久化存储时先从存储重新读取定义。
// 任一定义非法都返回 CONFIGURATION，当前快照保持不变；进行中的查询不受影响。
func (r *Registry) Reload(ctx context.Context) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	defs := r.staged
	if r.persist != nil {
		loaded, err := r.persist.load(ctx)
		if err != nil {
			r.notify(err)
			return nil, err
		}
		defs = loaded
	}

	snap, err := Build(defs)
	if err != nil {
		r.logger.Warn("reload rejected", zap.Error(err))
		r.notify(err)
		return nil, err
	}
	r.staged = snap.defs.Clone()
	r.install(snap)
	return snap, nil
}

// install 调用方需持有 r.mu。
func (r *Registry) install(snap *Snapshot) {
	r.version++
	snap.version = r.version
	r.current.Store(snap)
	r.logger.Info("snapshot installed",
		zap.Uint64("version", snap.version),
		zap.Strings("stores", snap.FeatureStoreNames()),
		zap.Strings("models", snap.ModelNames()),
	)
	r.notify(nil)
}

func (r *Registry) notify(err error) {
	if r.observer != nil {
		r.observer.ReloadDone(err)
	}
}
