// Package cleanup retries failed cascade purges from a Redis stream and
// periodically sweeps apartment data left without an apartment record.
package cleanup

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sinkapp/sink/internal/model"
)

// PurgeJob asks for the named stores of an apartment to be purged.
// Empty Stores means every store.
type PurgeJob struct {
	Code       string
	Stores     []string
	Attempt    int
	Reason     string
	EnqueuedAt time.Time
}

// values encodes the job as stream fields.
func (j PurgeJob) values() map[string]interface{} {
	return map[string]interface{}{
		"code":        j.Code,
		"stores":      strings.Join(j.Stores, ","),
		"attempt":     strconv.Itoa(j.Attempt),
		"reason":      j.Reason,
		"enqueued_at": strconv.FormatInt(j.EnqueuedAt.UnixMilli(), 10),
	}
}

// parseJob decodes stream fields written by values.
func parseJob(fields map[string]interface{}) (PurgeJob, error) {
	var job PurgeJob

	code, ok := fields["code"].(string)
	if !ok {
		return job, errors.New("code field missing or not a string")
	}
	job.Code = code

	if stores, ok := fields["stores"].(string); ok && stores != "" {
		job.Stores = strings.Split(stores, ",")
	}

	attempt, _ := fields["attempt"].(string)
	n, err := strconv.Atoi(attempt)
	if err != nil {
		return job, fmt.Errorf("attempt: %w", err)
	}
	job.Attempt = n

	job.Reason, _ = fields["reason"].(string)

	if ms, ok := fields["enqueued_at"].(string); ok && ms != "" {
		v, err := strconv.ParseInt(ms, 10, 64)
		if err != nil {
			return job, fmt.Errorf("enqueued_at: %w", err)
		}
		job.EnqueuedAt = time.UnixMilli(v).UTC()
	}

	return job, ValidatePurgeJob(job)
}

// ValidatePurgeJob checks a decoded job before it is acted on.
func ValidatePurgeJob(job PurgeJob) error {
	if !model.IsValidApartmentCode(job.Code) {
		return fmt.Errorf("code %q is not a valid apartment code", job.Code)
	}
	if job.Attempt < 0 {
		return fmt.Errorf("attempt must not be negative")
	}
	for _, s := range job.Stores {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("store names must not be empty")
		}
	}
	return nil
}
