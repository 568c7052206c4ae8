package handler

import (
	"time"

	"vetting/internal/credentialing/models"
	"vetting/internal/review"
	id "vetting/pkg/domain"
)

type DocumentListResponse struct {
	ProviderID id.ProviderID         `json:"provider_id"`
	Documents  []models.DocumentView `json:"documents"`
	AsOf       time.Time             `json:"as_of"`
}

type ReviewQueueResponse struct {
	Items []review.QueueEntry `json:"items"`
	Count int                 `json:"count"`
	AsOf  time.Time           `json:"as_of"`
}

type ExpirationAlertsResponse struct {
	Groups []review.AlertGroup `json:"groups"`
	Count  int                 `json:"count"`
	AsOf   time.Time           `json:"as_of"`
}
