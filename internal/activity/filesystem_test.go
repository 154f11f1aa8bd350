package activity

import (
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"stepup/internal/models"

	"github.com/blevesearch/bleve/v2"
)

func newTestFilesystemClient(t *testing.T) *FilesystemClient {
	t.Helper()
	config := models.ActivityConfiguration{
		Type: "filesystem",
		Filesystem: &models.FilesystemActivityConfiguration{
			Directory: filepath.Join(t.TempDir(), "activity.bleve"),
		},
	}
	client := NewFilesystemClient(config).(*FilesystemClient)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

type testEntry struct {
	action      string
	objectType  string
	userID      string
	challengeID string
	message     string
	ts          time.Time
	object      any
}

func sendTestActivity(t *testing.T, client *FilesystemClient, e testEntry) {
	t.Helper()
	err := client.Send(models.Activity{
		Message: e.message,
		Filter: models.LogFilter{
			Fields: map[string]string{
				"action":         e.action,
				"object_type":    e.objectType,
				"user_id":        e.userID,
				"challenge_id":   e.challengeID,
				"challenge_type": "totp",
				"step_up_action": "approve_position",
			},
			Timestamp: strconv.FormatInt(e.ts.UnixNano(), 10),
		},
		Object: e.object,
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
}

func TestFilesystemSendAndSearch(t *testing.T) {
	client := newTestFilesystemClient(t)

	sendTestActivity(t, client, testEntry{
		action:      StepUpVerified,
		objectType:  "step_up_challenge",
		userID:      "user-1",
		challengeID: "challenge-1",
		message:     "Step-up verified",
		ts:          time.Now(),
		object:      map[string]any{"action": "approve_position"},
	})

	results, err := client.Search(map[string][]string{"action": {StepUpVerified}})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	r := results[0]
	if r["challenge_id"] != "challenge-1" {
		t.Errorf("expected challenge_id=challenge-1, got %v", r["challenge_id"])
	}
	if r["step_up_action"] != "approve_position" {
		t.Errorf("expected step_up_action=approve_position, got %v", r["step_up_action"])
	}
	if r["message"] != "Step-up verified" {
		t.Errorf("expected message=Step-up verified, got %v", r["message"])
	}
	if _, ok := r["timestamp"].(string); !ok {
		t.Errorf("expected timestamp as string, got %T", r["timestamp"])
	}

	object, ok := r["object"].(map[string]any)
	if !ok {
		t.Fatalf("expected object map, got %T", r["object"])
	}
	if object["action"] != "approve_position" {
		t.Errorf("expected object action=approve_position, got %v", object["action"])
	}
}

func TestFilesystemSendDropsUnknownObjectTypes(t *testing.T) {
	client := newTestFilesystemClient(t)

	sendTestActivity(t, client, testEntry{
		action:     StepUpFailed,
		objectType: "session",
		userID:     "user-1",
		message:    "Wrong code",
		ts:         time.Now(),
		object:     map[string]any{"secret": "123456"},
	})

	results, err := client.Search(map[string][]string{"user_id": {"user-1"}})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if _, ok := results[0]["object"]; ok {
		t.Errorf("expected no object for unauthorized type, got %v", results[0]["object"])
	}
}

func TestFilesystemSearchWithORCriteria(t *testing.T) {
	client := newTestFilesystemClient(t)

	now := time.Now()
	sendTestActivity(t, client, testEntry{action: StepUpInitiated, objectType: "step_up_challenge", userID: "user-1", message: "Initiated", ts: now})
	sendTestActivity(t, client, testEntry{action: StepUpVerified, objectType: "step_up_challenge", userID: "user-1", message: "Verified", ts: now})
	sendTestActivity(t, client, testEntry{action: PositionApproved, objectType: "position_approval", userID: "user-1", message: "Approved", ts: now})

	results, err := client.Search(map[string][]string{
		"action":  {StepUpInitiated, StepUpVerified},
		"user_id": {"user-1"},
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

func TestFilesystemCountByDay(t *testing.T) {
	client := newTestFilesystemClient(t)

	today := time.Now()
	yesterday := today.AddDate(0, 0, -1)

	sendTestActivity(t, client, testEntry{action: StepUpVerified, userID: "user-1", message: "1", ts: today})
	sendTestActivity(t, client, testEntry{action: StepUpVerified, userID: "user-2", message: "2", ts: today.Add(-time.Minute)})
	sendTestActivity(t, client, testEntry{action: StepUpVerified, userID: "user-1", message: "3", ts: yesterday})
	sendTestActivity(t, client, testEntry{action: StepUpFailed, userID: "user-1", message: "4", ts: today})

	points, err := client.CountByDay(map[string][]string{"action": {StepUpVerified}}, 7)
	if err != nil {
		t.Fatalf("CountByDay failed: %v", err)
	}

	total := int64(0)
	for _, p := range points {
		total += p.Count
	}
	if total != 3 {
		t.Errorf("expected total count of 3, got %d (points: %+v)", total, points)
	}
}

func TestFilesystemSearchRespectsTimeWindow(t *testing.T) {
	client := newTestFilesystemClient(t)

	sendTestActivity(t, client, testEntry{action: StepUpInitiated, challengeID: "challenge-old", message: "Old", ts: time.Now().AddDate(0, 0, -60)})
	sendTestActivity(t, client, testEntry{action: StepUpInitiated, challengeID: "challenge-new", message: "New", ts: time.Now()})

	results, err := client.Search(map[string][]string{"action": {StepUpInitiated}})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0]["challenge_id"] != "challenge-new" {
		t.Errorf("expected challenge_id=challenge-new, got %v", results[0]["challenge_id"])
	}
}

func TestFilesystemMigrateIndex(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "activity.bleve")

	index, err := bleve.New(dir, buildIndexMapping())
	if err != nil {
		t.Fatalf("failed to create index: %v", err)
	}
	if err = index.SetInternal(schemaVersionKey, []byte("0")); err != nil {
		t.Fatalf("failed to set schema version: %v", err)
	}

	now := time.Now()
	docs := []FilesystemActivityEntry{
		{
			Message:     "Initiated",
			Timestamp:   now,
			Action:      StepUpInitiated,
			ObjectType:  "step_up_challenge",
			UserID:      "user-1",
			ChallengeID: "challenge-1",
		},
		{
			Message:    "Approved",
			Timestamp:  now.Add(-time.Second),
			Action:     PositionApproved,
			ObjectType: "position_approval",
			UserID:     "user-2",
			PositionID: "position-1",
			Object:     `{"stage":1}`,
		},
	}
	for i, doc := range docs {
		if err = index.Index(strconv.Itoa(i), doc); err != nil {
			t.Fatalf("failed to index doc %d: %v", i, err)
		}
	}
	if err = index.Close(); err != nil {
		t.Fatalf("failed to close index: %v", err)
	}

	client := NewFilesystemClient(models.ActivityConfiguration{
		Type:       "filesystem",
		Filesystem: &models.FilesystemActivityConfiguration{Directory: dir},
	}).(*FilesystemClient)
	defer func() { _ = client.Close() }()

	storedVersion, err := client.index.GetInternal(schemaVersionKey)
	if err != nil {
		t.Fatalf("failed to get schema version: %v", err)
	}
	if string(storedVersion) != schemaVersion {
		t.Errorf("expected schema version %s, got %s", schemaVersion, string(storedVersion))
	}

	results, err := client.Search(map[string][]string{})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results after migration, got %d", len(results))
	}

	found := map[string]bool{}
	for _, r := range results {
		found[r["action"].(string)] = true
	}
	if !found[StepUpInitiated] || !found[PositionApproved] {
		t.Errorf("expected both actions after migration, got %v", found)
	}
}

func TestNewLogFilter(t *testing.T) {
	before := time.Now().UnixNano()
	filter := NewLogFilter(map[string]string{"action": StepUpLocked})

	ts, err := strconv.ParseInt(filter.Timestamp, 10, 64)
	if err != nil {
		t.Fatalf("expected numeric timestamp: %v", err)
	}
	if ts < before {
		t.Errorf("expected timestamp >= %d, got %d", before, ts)
	}
	if filter.Fields["action"] != StepUpLocked {
		t.Errorf("expected action=%s, got %s", StepUpLocked, filter.Fields["action"])
	}
}
