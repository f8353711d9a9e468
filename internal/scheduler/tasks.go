package scheduler

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/hibiken/asynq"
)

const TaskSiteRefresh = "site:refresh"

type SiteRefreshPayload struct {
	TenantID string `json:"tenantId"`
}

func NewSiteRefreshTask(payload SiteRefreshPayload) (*asynq.Task, error) {
	if strings.TrimSpace(payload.TenantID) == "" {
		return nil, errors.New("site refresh: missing tenant id")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSiteRefresh, data), nil
}

func ParseSiteRefreshPayload(task *asynq.Task) (SiteRefreshPayload, error) {
	var payload SiteRefreshPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SiteRefreshPayload{}, err
	}
	return payload, nil
}
