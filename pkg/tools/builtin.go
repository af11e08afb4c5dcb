package tools

import (
	"context"
	"time"
)

// CurrentTimeName is the name of the built-in clock tool.
const CurrentTimeName = "getCurrentTime"

// CurrentTimeResult is returned by the clock tool.
type CurrentTimeResult struct {
	Success  bool   `json:"success"`
	Time     string `json:"time"`
	Timezone string `json:"timezone"`
}

// CurrentTime returns the built-in tool that reports the local time. A nil
// now uses time.Now.
func CurrentTime(now func() time.Time) Tool {
	if now == nil {
		now = time.Now
	}
	return Tool{
		Name:        CurrentTimeName,
		Description: "Get the current local date and time.",
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
		Handler: func(context.Context, map[string]any) (any, error) {
			t := now()
			return CurrentTimeResult{
				Success:  true,
				Time:     t.Format(time.RFC3339),
				Timezone: t.Location().String(),
			}, nil
		},
	}
}
