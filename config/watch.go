package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher 基于 fsnotify 监听配置文件，变更后重新加载并回调。
type Watcher struct {
	Path     string
	Cooldown time.Duration   // 冷却时间，避免编辑器连续写入触发多次
	OnError  func(err error) // 加载或监听失败时回调，可为空
}

// loadConfig is extracted for testing.
var loadConfig = LoadWithEnvOverrides

// Start 阻塞监听直到 ctx 取消；加载失败的配置不会回调 onUpdate。
func (w Watcher) Start(ctx context.Context, onUpdate func(AppConfig)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.Path); err != nil {
		return fmt.Errorf("failed to watch config file: %w", err)
	}

	var lastReload time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			// 原子替换（rename）会使监听失效，重新添加
			if event.Op&(fsnotify.Rename|fsnotify.Remove) != 0 {
				_ = fw.Add(w.Path)
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if w.Cooldown > 0 && time.Since(lastReload) < w.Cooldown {
				continue
			}
			// 截断后尚未写入内容时会读到空文件，跳过
			if info, err := os.Stat(w.Path); err == nil && info.Size() == 0 {
				continue
			}
			cfg, err := loadConfig(w.Path)
			if err != nil {
				w.report(fmt.Errorf("reload config: %w", err))
				continue
			}
			lastReload = time.Now()
			if onUpdate != nil {
				onUpdate(cfg)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.report(err)
		}
	}
}

func (w Watcher) report(err error) {
	if w.OnError != nil {
		w.OnError(err)
	}
}
