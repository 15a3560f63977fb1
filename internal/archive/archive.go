package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/finchley/burrow/internal/model"
	"github.com/finchley/burrow/internal/store"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Config holds archiver configuration.
type Config struct {
	S3            S3Config
	RetentionDays int
	Interval      time.Duration
}

// Manager exports completed chore history to S3-compatible storage and flags
// the exported rows archived. Chores referenced by history are archived, not
// deleted: scheduling queries skip them but completion records survive.
type Manager struct {
	mu     sync.Mutex
	cfg    Config
	chores *store.ChoreStore
	client s3Client
	logger *slog.Logger

	lastRun time.Time
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewManager(cfg Config, chores *store.ChoreStore, logger *slog.Logger) *Manager {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 90
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	m := &Manager{
		cfg:    cfg,
		chores: chores,
		logger: logger,
	}
	if cfg.S3.Bucket != "" && cfg.S3.AccessKey != "" && cfg.S3.SecretKey != "" {
		m.client = newS3Client(cfg.S3)
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Enabled reports whether S3 credentials were configured.
func (m *Manager) Enabled() bool {
	return m.client != nil
}

// Start begins the periodic export loop.
func (m *Manager) Start(ctx context.Context) {
	if !m.Enabled() {
		m.logger.Info("history archiver disabled: no S3 configuration")
		return
	}

	m.mu.Lock()
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.RunNow(ctx); err != nil {
					m.logger.Error("history export failed", "error", err)
				}
			}
		}
	}()
}

// Stop halts the export loop, waiting for an in-flight export.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

type exportRecord struct {
	ChoreID     int64      `json:"chore_id"`
	HouseholdID int64      `json:"household_id"`
	ParentID    *int64     `json:"parent_id,omitempty"`
	Title       string     `json:"title"`
	AssigneeID  *int64     `json:"assignee_id,omitempty"`
	Points      int        `json:"points"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CompletedBy *int64     `json:"completed_by,omitempty"`
	Notes       string     `json:"notes,omitempty"`
}

// RunNow exports every completed, unarchived chore older than the retention
// window as one JSON object, then marks the rows archived.
func (m *Manager) RunNow(ctx context.Context) error {
	if !m.Enabled() {
		return fmt.Errorf("archiver not configured")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -m.cfg.RetentionDays)
	chores, err := m.chores.ListCompletedBefore(cutoff)
	if err != nil {
		return fmt.Errorf("list completed: %w", err)
	}
	if len(chores) == 0 {
		return nil
	}

	records := make([]exportRecord, 0, len(chores))
	ids := make([]int64, 0, len(chores))
	for _, c := range chores {
		records = append(records, recordFromChore(c))
		ids = append(ids, c.ID)
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal export: %w", err)
	}

	key := fmt.Sprintf("chore-history/%s-%s.json", time.Now().UTC().Format("2006-01-02"), uuid.NewString())
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.cfg.S3.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("upload export: %w", err)
	}

	if err := m.chores.MarkArchived(ids); err != nil {
		return fmt.Errorf("mark archived: %w", err)
	}

	m.lastRun = time.Now()
	m.logger.Info("exported chore history", "key", key, "chores", len(ids))
	return nil
}

func recordFromChore(c model.Chore) exportRecord {
	return exportRecord{
		ChoreID:     c.ID,
		HouseholdID: c.HouseholdID,
		ParentID:    c.ParentID,
		Title:       c.Title,
		AssigneeID:  c.AssigneeID,
		Points:      c.Points,
		DueDate:     c.DueDate,
		CompletedAt: c.CompletedAt,
		CompletedBy: c.CompletedBy,
		Notes:       c.CompletionNotes,
	}
}
