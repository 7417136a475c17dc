package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskBalanceRefresh = "balance:refresh"

// RefreshPayload carries the inclusive date range of a refresh task. Both
// dates empty selects the previous calendar day at execution time.
type RefreshPayload struct {
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

func NewBalanceRefreshTask(payload RefreshPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBalanceRefresh, data, asynq.MaxRetry(0)), nil
}

func ParseBalanceRefreshPayload(task *asynq.Task) (RefreshPayload, error) {
	var payload RefreshPayload
	if len(task.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return RefreshPayload{}, err
	}
	return payload, nil
}
