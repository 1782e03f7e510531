package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"expdb/internal/store"
)

// Summary is the human-facing description of one experiment.
type Summary struct {
	ExperimentID string    `json:"experiment_id" yaml:"experiment_id"`
	Name         string    `json:"name" yaml:"name"`
	Description  string    `json:"description" yaml:"description"`
	Date         string    `json:"date" yaml:"date"`
	Time         string    `json:"time" yaml:"time"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	LastEmit     any       `json:"last_emit" yaml:"last_emit"`
}

const (
	timeCreatedLayout = "20060102150405"
	displayDate       = "01/02/2006"
	displayTime       = "15:04:05"
)

// Describe loads the configuration of id and the last emitted simulation time.
func (c *Client) Describe(ctx context.Context, id string) (*Summary, error) {
	cfg, err := c.configuration.FindOne(ctx, byExperiment(id), "name", "description", "time_created")
	if errors.Is(err, store.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load configuration of %s: %w", id, err)
	}

	stamp, ok := store.Lookup(cfg, "time_created")
	stampStr, isString := stamp.(string)
	if !ok || !isString {
		return nil, fmt.Errorf("%w: experiment %s has no time_created string", ErrMalformedInput, id)
	}
	created, err := ParseTimeCreated(stampStr)
	if err != nil {
		return nil, fmt.Errorf("experiment %s: %w", id, err)
	}

	times, err := c.history.FindMany(ctx, byExperiment(id), "time")
	if err != nil {
		return nil, fmt.Errorf("load history of %s: %w", id, err)
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoHistory, id)
	}
	lastEmit, _ := store.Lookup(times[len(times)-1], "time")

	return &Summary{
		ExperimentID: id,
		Name:         fieldString(cfg, "name"),
		Description:  fieldString(cfg, "description"),
		Date:         created.Format(displayDate),
		Time:         created.Format(displayTime),
		CreatedAt:    created,
		LastEmit:     lastEmit,
	}, nil
}

// DescribeAll describes every listed experiment. Failures for individual ids
// are joined into the returned error; the remaining summaries are still returned.
func (c *Client) DescribeAll(ctx context.Context) ([]*Summary, error) {
	ids, err := c.ListIDs(ctx)
	if err != nil {
		return nil, err
	}
	return c.DescribeMany(ctx, ids)
}

// DescribeMany describes each id in order, continuing past per-id failures.
// Every failure is a *DescribeError inside the joined error.
func (c *Client) DescribeMany(ctx context.Context, ids []string) ([]*Summary, error) {
	var (
		summaries []*Summary
		errs      []error
	)
	for _, id := range ids {
		s, err := c.Describe(ctx, id)
		if err != nil {
			errs = append(errs, &DescribeError{ExperimentID: id, Err: err})
			continue
		}
		summaries = append(summaries, s)
	}
	return summaries, errors.Join(errs...)
}

// ParseTimeCreated parses a "YYYYMMDD.HHMMSS" stamp. Anything after a second
// dot is ignored.
func ParseTimeCreated(stamp string) (time.Time, error) {
	parts := strings.SplitN(stamp, ".", 3)
	if len(parts) < 2 || len(parts[0]) != 8 || len(parts[1]) < 6 {
		return time.Time{}, fmt.Errorf("%w: time_created %q is not YYYYMMDD.HHMMSS", ErrMalformedInput, stamp)
	}
	t, err := time.Parse(timeCreatedLayout, parts[0]+parts[1][:6])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: time_created %q: %v", ErrMalformedInput, stamp, err)
	}
	return t, nil
}

func fieldString(doc store.Document, key string) string {
	v, ok := store.Lookup(doc, key)
	if !ok || v == nil {
		return ""
	}
	if s, isString := v.(string); isString {
		return s
	}
	return fmt.Sprint(v)
}
