package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"expdb/internal/logger"
	"expdb/internal/store"
)

// ExportDocument is the file form of one experiment: every history record in
// collection order plus the configuration record.
type ExportDocument struct {
	Data              []store.Document
	EnvironmentConfig store.Document
}

// ExperimentID returns the experiment_id of the configuration record.
func (d *ExportDocument) ExperimentID() string {
	v, _ := store.Lookup(d.EnvironmentConfig, "experiment_id")
	id, _ := v.(string)
	return id
}

// ImportOptions tunes Import.
type ImportOptions struct {
	// NewID loads the records under a freshly generated experiment id and
	// drops their _id fields, so a copy of an existing experiment can be added.
	NewID bool
}

// Encode renders d as indented canonical Extended JSON with the top-level
// fields "data" and "environment_config". Every BSON type survives the trip.
func (d *ExportDocument) Encode() ([]byte, error) {
	data := bson.A{}
	for _, rec := range d.Data {
		data = append(data, rec)
	}
	cfg := d.EnvironmentConfig
	if cfg == nil {
		cfg = bson.D{}
	}
	out, err := bson.MarshalExtJSONIndent(bson.D{
		{Key: "data", Value: data},
		{Key: "environment_config", Value: cfg},
	}, true, false, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export document: %w", err)
	}
	return append(out, '\n'), nil
}

// DecodeExport parses an export file, checking that both top-level fields are
// present, that environment_config carries a string experiment_id and that
// every history record references that same experiment.
func DecodeExport(raw []byte) (*ExportDocument, error) {
	var top bson.D
	if err := bson.UnmarshalExtJSON(raw, true, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	cfgValue, ok := store.Lookup(top, "environment_config")
	if !ok {
		return nil, fmt.Errorf("%w: missing environment_config", ErrMalformedInput)
	}
	cfg, ok := cfgValue.(bson.D)
	if !ok {
		return nil, fmt.Errorf("%w: environment_config is not a document", ErrMalformedInput)
	}

	dataValue, ok := store.Lookup(top, "data")
	if !ok {
		return nil, fmt.Errorf("%w: missing data", ErrMalformedInput)
	}
	arr, ok := dataValue.(bson.A)
	if !ok {
		return nil, fmt.Errorf("%w: data is not an array", ErrMalformedInput)
	}

	doc := &ExportDocument{EnvironmentConfig: cfg, Data: make([]store.Document, 0, len(arr))}
	id := doc.ExperimentID()
	if id == "" {
		return nil, fmt.Errorf("%w: environment_config has no experiment_id", ErrMalformedInput)
	}

	for i, item := range arr {
		rec, ok := item.(bson.D)
		if !ok {
			return nil, fmt.Errorf("%w: data[%d] is not a document", ErrMalformedInput, i)
		}
		doc.Data = append(doc.Data, rec)
	}
	if err := checkHistory(id, doc.Data); err != nil {
		return nil, err
	}
	return doc, nil
}

// checkHistory fails unless every record references experiment id.
func checkHistory(id string, history []store.Document) error {
	for i, rec := range history {
		v, ok := store.Lookup(rec, "experiment_id")
		if !ok {
			return fmt.Errorf("%w: data[%d] has no experiment_id", ErrMalformedInput, i)
		}
		if v != id {
			return fmt.Errorf("%w: data[%d] belongs to experiment %v, not %s", ErrMalformedInput, i, v, id)
		}
	}
	return nil
}

// Export loads the configuration and all history records of id.
func (c *Client) Export(ctx context.Context, id string) (*ExportDocument, error) {
	cfg, err := c.configuration.FindOne(ctx, byExperiment(id))
	if errors.Is(err, store.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load configuration of %s: %w", id, err)
	}

	history, err := c.history.FindMany(ctx, byExperiment(id))
	if err != nil {
		return nil, fmt.Errorf("load history of %s: %w", id, err)
	}
	return &ExportDocument{Data: history, EnvironmentConfig: cfg}, nil
}

// ExportToFile writes the export document of id to path, creating parent
// directories as needed.
func (c *Client) ExportToFile(ctx context.Context, id, path string) error {
	doc, err := c.Export(ctx, id)
	if err != nil {
		return err
	}
	raw, err := doc.Encode()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	logger.Debug("Exported experiment", "experiment_id", id, "path", path, "history", len(doc.Data))
	return nil
}

// Import writes doc into the database: configuration first, then history.
// It refuses with ErrConflict, before writing anything, when the experiment
// id is already present. It returns the id the records were stored under.
func (c *Client) Import(ctx context.Context, doc *ExportDocument, opts ImportOptions) (string, error) {
	id := doc.ExperimentID()
	if id == "" {
		return "", fmt.Errorf("%w: environment_config has no experiment_id", ErrMalformedInput)
	}
	if err := checkHistory(id, doc.Data); err != nil {
		return "", err
	}

	cfg, history := doc.EnvironmentConfig, doc.Data
	if opts.NewID {
		id = uuid.NewString()
		cfg = store.With(store.Without(cfg, "_id"), "experiment_id", id)
		renamed := make([]store.Document, len(history))
		for i, rec := range history {
			renamed[i] = store.With(store.Without(rec, "_id"), "experiment_id", id)
		}
		history = renamed
	}

	exists, err := c.Exists(ctx, id)
	if err != nil {
		return "", err
	}
	if exists {
		return "", fmt.Errorf("%w: %s", ErrConflict, id)
	}

	if err := c.configuration.InsertMany(ctx, []store.Document{cfg}); err != nil {
		return "", fmt.Errorf("insert configuration of %s: %w", id, err)
	}
	if err := c.history.InsertMany(ctx, history); err != nil {
		return "", fmt.Errorf("insert history of %s: %w", id, err)
	}
	logger.Debug("Imported experiment", "experiment_id", id, "history", len(history))
	return id, nil
}

// ImportFromFile reads and imports the export document at path.
func (c *Client) ImportFromFile(ctx context.Context, path string, opts ImportOptions) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := DecodeExport(raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return c.Import(ctx, doc, opts)
}
