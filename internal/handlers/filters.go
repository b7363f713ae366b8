package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/habeasdata/consent-campaigns/internal/models"
)

const filterDateLayout = "2006-01-02"

// parseRequestFilter reads the shared reporting filter from query params:
// status (comma-separated), from and to (YYYY-MM-DD, applied to sent_at).
func parseRequestFilter(c *gin.Context) (models.RequestFilter, error) {
	var filter models.RequestFilter

	if statuses := c.Query("status"); statuses != "" {
		for _, s := range strings.Split(statuses, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			switch s {
			case models.StatusPending, models.StatusAccepted, models.StatusRejected,
				models.StatusFailed, models.StatusRevoked:
				filter.Statuses = append(filter.Statuses, s)
			default:
				return filter, fmt.Errorf("unknown status: %s", s)
			}
		}
	}

	if from := c.Query("from"); from != "" {
		t, err := time.Parse(filterDateLayout, from)
		if err != nil {
			return filter, fmt.Errorf("invalid 'from' date: %s", from)
		}
		filter.DateFrom = &t
	}

	if to := c.Query("to"); to != "" {
		t, err := time.Parse(filterDateLayout, to)
		if err != nil {
			return filter, fmt.Errorf("invalid 'to' date: %s", to)
		}
		filter.DateTo = &t
	}

	return filter, nil
}
