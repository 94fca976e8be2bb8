package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	TaskProviderStats = "stats:provider"
	TaskUserRisk      = "risk:user"
)

type ProviderStatsPayload struct {
	ProviderID uint `json:"providerId"`
}

type UserRiskPayload struct {
	UserID uint `json:"userId"`
}

func NewProviderStatsTask(providerID uint) (*asynq.Task, error) {
	data, err := json.Marshal(ProviderStatsPayload{ProviderID: providerID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskProviderStats, data), nil
}

func ParseProviderStatsPayload(task *asynq.Task) (ProviderStatsPayload, error) {
	var payload ProviderStatsPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ProviderStatsPayload{}, err
	}
	if payload.ProviderID == 0 {
		return ProviderStatsPayload{}, fmt.Errorf("%s: missing provider id", TaskProviderStats)
	}
	return payload, nil
}

func NewUserRiskTask(userID uint) (*asynq.Task, error) {
	data, err := json.Marshal(UserRiskPayload{UserID: userID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskUserRisk, data), nil
}

func ParseUserRiskPayload(task *asynq.Task) (UserRiskPayload, error) {
	var payload UserRiskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return UserRiskPayload{}, err
	}
	if payload.UserID == 0 {
		return UserRiskPayload{}, fmt.Errorf("%s: missing user id", TaskUserRisk)
	}
	return payload, nil
}
