package activity

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"stepup/internal/models"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const schemaVersion = "1"

var schemaVersionKey = []byte("schema_version")

// keywordFields are indexed verbatim and can be used as search criteria.
var keywordFields = []string{
	"action",
	"object_type",
	"user_id",
	"challenge_id",
	"challenge_type",
	"device_id",
	"position_id",
	"step_up_action",
}

// FilesystemActivityEntry is the document shape indexed in bleve.
type FilesystemActivityEntry struct {
	Message       string    `json:"message"`
	Timestamp     time.Time `json:"timestamp"`
	Action        string    `json:"action"`
	ObjectType    string    `json:"object_type"`
	UserID        string    `json:"user_id"`
	ChallengeID   string    `json:"challenge_id"`
	ChallengeType string    `json:"challenge_type"`
	DeviceID      string    `json:"device_id"`
	PositionID    string    `json:"position_id"`
	StepUpAction  string    `json:"step_up_action"`
	Object        string    `json:"object"`
}

// FilesystemClient implements IActivityLogger using a local bleve index.
type FilesystemClient struct {
	index bleve.Index
}

// NewFilesystemClient opens or creates the bleve index in the configured
// directory. An index with another schema version is rebuilt in place.
func NewFilesystemClient(config models.ActivityConfiguration) IActivityLogger {
	client, err := openFilesystemClient(config.Filesystem.Directory)
	if err != nil {
		zap.L().Fatal("Failed to open filesystem activity index", zap.Error(err))
	}
	return client
}

func openFilesystemClient(dir string) (*FilesystemClient, error) {
	index, err := bleve.Open(dir)
	if err != nil {
		index, err = bleve.New(dir, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create index: %w", err)
		}
		if err = index.SetInternal(schemaVersionKey, []byte(schemaVersion)); err != nil {
			return nil, fmt.Errorf("failed to set schema version: %w", err)
		}
		return &FilesystemClient{index: index}, nil
	}

	storedVersion, err := index.GetInternal(schemaVersionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get schema version: %w", err)
	}
	if string(storedVersion) == schemaVersion {
		return &FilesystemClient{index: index}, nil
	}

	zap.L().Info("Schema version mismatch, migrating index",
		zap.String("old_version", string(storedVersion)),
		zap.String("new_version", schemaVersion))

	if err = index.Close(); err != nil {
		return nil, fmt.Errorf("failed to close old index: %w", err)
	}
	if err = migrateIndex(dir); err != nil {
		return nil, err
	}

	index, err = bleve.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open migrated index: %w", err)
	}
	if err = index.SetInternal(schemaVersionKey, []byte(schemaVersion)); err != nil {
		return nil, fmt.Errorf("failed to set schema version: %w", err)
	}
	return &FilesystemClient{index: index}, nil
}

func buildIndexMapping() *mapping.IndexMappingImpl {
	keywordMapping := bleve.NewKeywordFieldMapping()

	storedOnly := bleve.NewTextFieldMapping()
	storedOnly.Index = false
	storedOnly.Store = true

	docMapping := bleve.NewDocumentMapping()
	for _, field := range keywordFields {
		docMapping.AddFieldMappingsAt(field, keywordMapping)
	}
	docMapping.AddFieldMappingsAt("timestamp", bleve.NewDateTimeFieldMapping())
	docMapping.AddFieldMappingsAt("message", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("object", storedOnly)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// migrateIndex copies every document into a fresh index built with the
// current mapping, then swaps the directories.
func migrateIndex(dir string) error {
	oldIndex, err := bleve.Open(dir)
	if err != nil {
		return fmt.Errorf("failed to open old index: %w", err)
	}

	newDir := dir + ".new"
	newIndex, err := bleve.New(newDir, buildIndexMapping())
	if err != nil {
		_ = oldIndex.Close()
		return fmt.Errorf("failed to create new index: %w", err)
	}

	copied, err := copyDocuments(oldIndex, newIndex)
	_ = oldIndex.Close()
	_ = newIndex.Close()
	if err != nil {
		_ = os.RemoveAll(newDir)
		return err
	}
	zap.L().Info("Migration: copied documents", zap.Int("count", copied))

	oldDir := dir + ".old"
	if err = os.Rename(dir, oldDir); err != nil {
		return fmt.Errorf("failed to rename old index dir: %w", err)
	}
	if err = os.Rename(newDir, dir); err != nil {
		return fmt.Errorf("failed to rename new index dir: %w", err)
	}
	if err = os.RemoveAll(oldDir); err != nil {
		zap.L().Warn("Failed to remove old index dir", zap.Error(err))
	}
	return nil
}

func copyDocuments(oldIndex, newIndex bleve.Index) (int, error) {
	const pageSize = 100
	total := 0

	for from := 0; ; from += pageSize {
		req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), pageSize, from, false)
		req.Fields = []string{"*"}

		result, err := oldIndex.Search(req)
		if err != nil {
			return 0, fmt.Errorf("failed to search old index: %w", err)
		}

		batch := newIndex.NewBatch()
		for _, hit := range result.Hits {
			if err = batch.Index(hit.ID, entryFromFields(hit.Fields)); err != nil {
				return 0, fmt.Errorf("failed to index document %s: %w", hit.ID, err)
			}
		}
		if err = newIndex.Batch(batch); err != nil {
			return 0, fmt.Errorf("failed to batch index: %w", err)
		}

		total += len(result.Hits)
		if len(result.Hits) < pageSize {
			return total, nil
		}
	}
}

func entryFromFields(fields map[string]any) FilesystemActivityEntry {
	var entry FilesystemActivityEntry
	if b, err := json.Marshal(fields); err == nil {
		_ = json.Unmarshal(b, &entry)
	}
	return entry
}

func (c *FilesystemClient) Close() error {
	return c.index.Close()
}

func (c *FilesystemClient) Send(activity models.Activity) error {
	ts, err := strconv.ParseInt(activity.Filter.Timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("failed to parse timestamp: %w", err)
	}

	fields := activity.Filter.Fields

	var objectJSON string
	if activity.Object != nil && isAuthorizedObject(fields["object_type"]) {
		b, marshalErr := json.Marshal(activity.Object)
		if marshalErr != nil {
			return fmt.Errorf("failed to marshal object: %w", marshalErr)
		}
		objectJSON = string(b)
	}

	entry := FilesystemActivityEntry{
		Message:       activity.Message,
		Timestamp:     time.Unix(0, ts),
		Action:        fields["action"],
		ObjectType:    fields["object_type"],
		UserID:        fields["user_id"],
		ChallengeID:   fields["challenge_id"],
		ChallengeType: fields["challenge_type"],
		DeviceID:      fields["device_id"],
		PositionID:    fields["position_id"],
		StepUpAction:  fields["step_up_action"],
		Object:        objectJSON,
	}

	if err = c.index.Index(uuid.New().String(), entry); err != nil {
		return fmt.Errorf("failed to index activity: %w", err)
	}
	return nil
}

// Search returns the 100 most recent matching entries of the last 30 days.
func (c *FilesystemClient) Search(searchCriteria map[string][]string) ([]map[string]any, error) {
	now := time.Now()
	searchRequest := bleve.NewSearchRequest(withinRange(buildBleveQuery(searchCriteria), now.AddDate(0, 0, -30), now))
	searchRequest.Size = 100
	searchRequest.SortBy([]string{"-timestamp"})
	searchRequest.Fields = []string{"*"}

	result, err := c.index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to search activity: %w", err)
	}

	activities := make([]map[string]any, 0, len(result.Hits))
	for _, hit := range result.Hits {
		activities = append(activities, hitToMap(hit))
	}
	return activities, nil
}

func hitToMap(hit *search.DocumentMatch) map[string]any {
	entry := map[string]any{}
	for _, field := range keywordFields {
		value, _ := hit.Fields[field].(string)
		entry[field] = value
	}
	entry["message"], _ = hit.Fields["message"].(string)

	if s, ok := hit.Fields["timestamp"].(string); ok {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			entry["timestamp"] = strconv.FormatInt(t.UnixNano(), 10)
		}
	}

	if objectStr, _ := hit.Fields["object"].(string); objectStr != "" {
		var object map[string]any
		if json.Unmarshal([]byte(objectStr), &object) == nil {
			entry["object"] = object
		}
	}
	return entry
}

// CountByDay buckets matching entries per calendar day over the last days.
// Days without entries are omitted.
func (c *FilesystemClient) CountByDay(searchCriteria map[string][]string, days int) ([]models.TimeSeriesPoint, error) {
	now := time.Now()
	searchRequest := bleve.NewSearchRequest(withinRange(buildBleveQuery(searchCriteria), now.AddDate(0, 0, -days), now))
	searchRequest.Size = 0

	facet := bleve.NewFacetRequest("timestamp", days+1)
	for i := days; i >= 0; i-- {
		dayStart := now.AddDate(0, 0, -i).Truncate(24 * time.Hour)
		facet.AddDateTimeRange(dayStart.Format("2006-01-02"), dayStart, dayStart.Add(24*time.Hour))
	}
	searchRequest.AddFacet("daily_counts", facet)

	result, err := c.index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to count activity by day: %w", err)
	}

	points := []models.TimeSeriesPoint{}
	dailyFacet, ok := result.Facets["daily_counts"]
	if !ok {
		return points, nil
	}

	for _, dr := range dailyFacet.DateRanges {
		if dr.Count > 0 {
			points = append(points, models.TimeSeriesPoint{Date: dr.Name, Count: int64(dr.Count)})
		}
	}
	return points, nil
}

func withinRange(q query.Query, start, end time.Time) query.Query {
	dateQuery := bleve.NewDateRangeQuery(start, end)
	dateQuery.SetField("timestamp")
	return bleve.NewConjunctionQuery(q, dateQuery)
}

func buildBleveQuery(searchCriteria map[string][]string) query.Query {
	var queries []query.Query

	for key, values := range searchCriteria {
		var terms []query.Query
		for _, v := range values {
			tq := bleve.NewTermQuery(v)
			tq.SetField(key)
			terms = append(terms, tq)
		}

		switch len(terms) {
		case 0:
		case 1:
			queries = append(queries, terms[0])
		default:
			disjunction := bleve.NewDisjunctionQuery(terms...)
			disjunction.SetMin(1)
			queries = append(queries, disjunction)
		}
	}

	switch len(queries) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return queries[0]
	default:
		return bleve.NewConjunctionQuery(queries...)
	}
}
