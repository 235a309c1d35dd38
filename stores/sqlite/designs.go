package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"garment-studio/core"

	"github.com/jmoiron/sqlx"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

var schema = []string{`
CREATE TABLE IF NOT EXISTS designs (
	id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	shirt_style TEXT NOT NULL DEFAULT '',
	front_design TEXT NOT NULL DEFAULT '[]',
	back_design TEXT NOT NULL DEFAULT '[]',
	preview_front TEXT NOT NULL DEFAULT '',
	preview_back TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (user_id, id)
);`,
	`CREATE INDEX IF NOT EXISTS designs_user_created ON designs (user_id, created_at);`,
}

type designStore struct {
	db *sqlx.DB
}

// designRow is the table form of a saved design. Element arrays are kept as
// JSON text.
type designRow struct {
	ID           string    `db:"id"`
	UserID       string    `db:"user_id"`
	Name         string    `db:"name"`
	ShirtStyle   string    `db:"shirt_style"`
	FrontDesign  string    `db:"front_design"`
	BackDesign   string    `db:"back_design"`
	PreviewFront string    `db:"preview_front"`
	PreviewBack  string    `db:"preview_back"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func NewDesignStore(dataSourceName string) core.DesignStore {
	db, err := sqlx.Open("sqlite", dataSourceName)
	if err != nil {
		logrus.WithError(err).Fatal("failed to open sqlite database")
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			logrus.WithError(err).Fatal("failed to create designs table")
		}
	}
	return &designStore{db}
}

func (s *designStore) List(ctx context.Context, userID string) ([]*core.SavedDesign, error) {
	log := logrus.WithField("user_id", userID)

	var rows []designRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, name, shirt_style, preview_front, preview_back, created_at, updated_at
		FROM designs WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		log.WithError(err).Error("Failed to list designs")
		return nil, err
	}

	designs := make([]*core.SavedDesign, 0, len(rows))
	for _, row := range rows {
		designs = append(designs, &core.SavedDesign{
			ID:           row.ID,
			UserID:       row.UserID,
			Name:         row.Name,
			ShirtStyle:   core.ShirtStyle(row.ShirtStyle),
			PreviewFront: row.PreviewFront,
			PreviewBack:  row.PreviewBack,
			CreatedAt:    row.CreatedAt,
			UpdatedAt:    row.UpdatedAt,
		})
	}

	log.Infof("Listed %d designs", len(designs))
	return designs, nil
}

func (s *designStore) Get(ctx context.Context, userID, id string) (*core.SavedDesign, error) {
	log := logrus.WithFields(logrus.Fields{"user_id": userID, "design_id": id})

	var row designRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM designs WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn("Design not found for user")
			return nil, fmt.Errorf("design %s: %w", id, core.ErrDesignNotFound)
		}
		log.WithError(err).Error("Failed to retrieve design")
		return nil, err
	}

	design := &core.SavedDesign{
		ID:           row.ID,
		UserID:       row.UserID,
		Name:         row.Name,
		ShirtStyle:   core.ShirtStyle(row.ShirtStyle),
		PreviewFront: row.PreviewFront,
		PreviewBack:  row.PreviewBack,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(row.FrontDesign), &design.FrontDesign); err != nil {
		return nil, fmt.Errorf("failed to decode front design: %w", err)
	}
	if err := json.Unmarshal([]byte(row.BackDesign), &design.BackDesign); err != nil {
		return nil, fmt.Errorf("failed to decode back design: %w", err)
	}

	log.Info("Design retrieved successfully")
	return design, nil
}

func (s *designStore) Create(ctx context.Context, design *core.SavedDesign) (string, error) {
	if design.UserID == "" {
		return "", fmt.Errorf("user id cannot be empty")
	}
	front, err := encodeElements(design.FrontDesign)
	if err != nil {
		return "", err
	}
	back, err := encodeElements(design.BackDesign)
	if err != nil {
		return "", err
	}

	id := ulid.Make().String()
	now := time.Now().UTC()
	row := designRow{
		ID:           id,
		UserID:       design.UserID,
		Name:         design.Name,
		ShirtStyle:   string(design.ShirtStyle),
		FrontDesign:  front,
		BackDesign:   back,
		PreviewFront: design.PreviewFront,
		PreviewBack:  design.PreviewBack,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	log := logrus.WithFields(logrus.Fields{"user_id": design.UserID, "design_id": id})

	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO designs (id, user_id, name, shirt_style, front_design, back_design, preview_front, preview_back, created_at, updated_at)
		VALUES (:id, :user_id, :name, :shirt_style, :front_design, :back_design, :preview_front, :preview_back, :created_at, :updated_at)`, row)
	if err != nil {
		log.WithError(err).Error("Failed to create design")
		return "", err
	}

	design.ID = id
	design.CreatedAt = now
	design.UpdatedAt = now
	log.Info("Design created successfully")
	return id, nil
}

func (s *designStore) Delete(ctx context.Context, userID, id string) error {
	log := logrus.WithFields(logrus.Fields{"user_id": userID, "design_id": id})

	res, err := s.db.ExecContext(ctx, "DELETE FROM designs WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		log.WithError(err).Error("Failed to delete design")
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		log.Warn("Design not found for deletion")
		return fmt.Errorf("design %s: %w", id, core.ErrDesignNotFound)
	}

	log.Info("Design deleted successfully")
	return nil
}

func encodeElements(elements []core.DesignElement) (string, error) {
	if elements == nil {
		elements = []core.DesignElement{}
	}
	data, err := json.Marshal(elements)
	if err != nil {
		return "", fmt.Errorf("failed to encode elements: %w", err)
	}
	return string(data), nil
}
