package render

import (
	"github.com/fatih/color"

	"github.com/ShayCichocki/dbtmon/pkg/models"
)

// Sprint color functions for status labels.
var (
	Green  = color.New(color.FgGreen).SprintFunc()
	Red    = color.New(color.FgRed).SprintFunc()
	Yellow = color.New(color.FgYellow).SprintFunc()
)

// StatusLabel returns the colored label shown in a task's footer.
func StatusLabel(status models.TaskStatus) string {
	switch status {
	case models.TaskStatusRunning:
		return "RUN"
	case models.TaskStatusSuccess:
		return Green("SUCCESS")
	case models.TaskStatusError:
		return Red("ERROR")
	case models.TaskStatusSkipped:
		return Yellow("SKIP")
	default:
		return "UNKNOWN"
	}
}
