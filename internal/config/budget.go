// internal/config/budget.go
package config

// WriteTimeoutMarginMs is added on top of the handler budget by Normalize.
const WriteTimeoutMarginMs = 2000

// HandlerBudgetMs is the longest a control request can legitimately run.
//
//	/trigger_capture: frame + inference + one command
//	/start while stopping: the worker's in-flight call, at worst a full
//	dispatch of one command per intersection
//
// Unset timeouts count at their defaults, so the budget is the same before
// and after Normalize.
func HandlerBudgetMs(cfg *Config) int {
	frame := orDefault(cfg.Device.FrameTimeoutMs, DefaultDeviceTimeout)
	command := orDefault(cfg.Device.CommandTimeoutMs, DefaultDeviceTimeout)
	vision := orDefault(cfg.Vision.TimeoutMs, DefaultVisionTimeout)

	n := len(cfg.Intersections)
	if n < 1 {
		n = 1
	}

	return frame + vision + n*command
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
