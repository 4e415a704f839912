package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskNurtureRun = "nurture.run"

const TaskStationHealthRun = "stationhealth.run"

// RunPayload carries the trigger time of a job run, for tracing delayed
// executions. The jobs themselves re-derive all state from the database.
type RunPayload struct {
	TriggeredAt time.Time `json:"triggeredAt"`
}

func NewNurtureRunTask(payload RunPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNurtureRun, data), nil
}

func NewStationHealthRunTask(payload RunPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStationHealthRun, data), nil
}

func ParseRunPayload(task *asynq.Task) (RunPayload, error) {
	var payload RunPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return RunPayload{}, err
	}
	return payload, nil
}
