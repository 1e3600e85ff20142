package deployment

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// JobType selects how the hosting platform runs an uploaded job.
type JobType string

const (
	JobTriggered  JobType = "triggered"
	JobContinuous JobType = "continuous"
)

// ParseJobType accepts "triggered" or "continuous" in any case. An empty
// string selects JobTriggered.
func ParseJobType(s string) (JobType, error) {
	switch JobType(strings.ToLower(strings.TrimSpace(s))) {
	case "", JobTriggered:
		return JobTriggered, nil
	case JobContinuous:
		return JobContinuous, nil
	}
	return "", fmt.Errorf("unknown job type %q (want %s or %s)", s, JobTriggered, JobContinuous)
}

// Slot names a job on the hosting platform.
type Slot struct {
	ResourceGroup string  `validate:"required" label:"resource group"`
	ServiceName   string  `validate:"required" label:"service name"`
	JobName       string  `validate:"required" label:"job name"`
	JobType       JobType `validate:"required,oneof=triggered continuous" label:"job type"`
}

// DeployRequest is one archive upload to a slot. It is built once from the
// command line and passed by value.
type DeployRequest struct {
	Slot
	ArchivePath string `validate:"required" label:"archive path"`
}

// DeployResult is what the upload step produced. RawOutput holds the
// combined output of the control-plane call, successful or not.
type DeployResult struct {
	DeploymentID string
	Succeeded    bool
	RawOutput    string
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			return f.Tag.Get("label")
		})
	})
	return validate
}

// Validate reports every missing or malformed field at once.
func (s Slot) Validate() error {
	return check(s)
}

// Validate reports every missing or malformed field at once.
func (r DeployRequest) Validate() error {
	return check(r)
}

func check(v any) error {
	err := requestValidator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s %q must be one of %s", fe.Field(), fe.Value(), fe.Param()))
		default:
			msgs = append(msgs, fe.Field()+" is invalid")
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
