package registry

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultWatchDebounce 合并编辑器保存时产生的连续事件。
const DefaultWatchDebounce = 200 * time.Millisecond

// LoadFile 读取定义文件并调用 Replace。
func (r *Registry) LoadFile(ctx context.Context, path string) (*Snapshot, error) {
	defs, err := LoadDefinitionsFile(path)
	if err != nil {
		r.notify(err)
		return nil, err
	}
	return r.Replace(ctx, defs)
}

// Watch 先加载一次定义文件，然后在文件变化时重新加载，直到 ctx 结束。
// 文件内容非法时记录日志并保留当前快照。监听的是所在目录，以便覆盖
// 原子重命名式的保存（写临时文件再 rename）。
func (r *Registry) Watch(ctx context.Context, path string) error {
	if _, err := r.LoadFile(ctx, path); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = watcher.Close()
		return fmt.Errorf("resolve path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	go r.watchLoop(ctx, watcher, abs)
	return nil
}

func (r *Registry) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, path string) {
	defer watcher.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(DefaultWatchDebounce)
			} else {
				timer.Reset(DefaultWatchDebounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			if _, err := r.LoadFile(ctx, path); err != nil {
				r.logger.Warn("definitions reload failed", zap.String("path", path), zap.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn("definitions watcher error", zap.Error(err))
		}
	}
}
