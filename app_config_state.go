package main

import (
	"log/slog"

	"rigela/internal/config"
)

// getConfigSnapshot returns a deep-copied config protected by cfgMu.
// All read access to App.cfg should go through this helper.
func (a *App) getConfigSnapshot() config.Config {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return config.Clone(a.cfg)
}

// setConfigSnapshot stores a deep-copied config protected by cfgMu.
// All write access to App.cfg should go through this helper.
func (a *App) setConfigSnapshot(cfg config.Config) {
	a.cfgMu.Lock()
	a.cfg = config.Clone(cfg)
	a.cfgMu.Unlock()
}

// applyConfig pushes cfg into the running pipeline. It is called once at
// startup and again for every reload seen by the config watcher.
//
// The mouse-read flag is a runtime toggle, so a reload only overwrites it
// when the configured value itself changed.
func (a *App) applyConfig(cfg config.Config) {
	a.reloadMu.Lock()
	defer a.reloadMu.Unlock()

	cfg = config.ApplyEnv(cfg)
	previous := a.getConfigSnapshot()
	a.setConfigSnapshot(cfg)

	a.logLevel.Set(config.SlogLevel(cfg.Log.Level))
	if a.commander == nil {
		return
	}
	a.commander.Registry().SetOverrides(config.HotkeyOverrides(cfg))
	a.commander.Detector().SetTimings(cfg.Keyboard.DoublePressWindow, cfg.Keyboard.LongPressThreshold)
	if !a.configApplied || previous.Mouse.Read != cfg.Mouse.Read {
		a.commander.SetMouseRead(cfg.Mouse.Read)
	}
	a.configApplied = true
	slog.Debug("[DEBUG-CONFIG] config applied",
		"hotkeyOverrides", len(cfg.Hotkeys),
		"doublePressWindow", cfg.Keyboard.DoublePressWindow,
		"longPressThreshold", cfg.Keyboard.LongPressThreshold,
		"mouseRead", a.commander.MouseRead(),
	)
}
