package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/atlas-mind/backend/internal/storage/models"
	"github.com/atlas-mind/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL,
		full_name TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		doc_id TEXT,
		sheet_id TEXT,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS resources (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		name TEXT NOT NULL,
		parsed_text TEXT,
		uploaded_by TEXT,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_resources_project ON resources(project_id);
	CREATE INDEX IF NOT EXISTS idx_resources_name ON resources(name);

	CREATE TABLE IF NOT EXISTS chat_history (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		user_id TEXT,
		query TEXT NOT NULL,
		translated_query TEXT,
		answer TEXT,
		resource_count INTEGER,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chat_project ON chat_history(project_id);
	CREATE INDEX IF NOT EXISTS idx_chat_created ON chat_history(created_at);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertUser(user *models.User) error {
	query := `INSERT INTO users (id, email, password, full_name, created_at) VALUES (?, ?, ?, ?, ?)`

	_, err := c.db.Exec(query, user.ID, user.Email, user.Password, user.FullName, user.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	logger.Info("User created", zap.String("user_id", user.ID), zap.String("email", user.Email))
	return nil
}

func (c *Client) GetUserByEmail(email string) (*models.User, error) {
	query := `SELECT id, email, password, full_name, created_at FROM users WHERE email = ?`

	var user models.User
	var createdAt int64

	err := c.db.QueryRow(query, email).Scan(&user.ID, &user.Email, &user.Password, &user.FullName, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.CreatedAt = time.Unix(createdAt, 0)
	return &user, nil
}

func (c *Client) InsertProject(project *models.Project) error {
	query := `INSERT INTO projects (id, name, description, doc_id, sheet_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`

	_, err := c.db.Exec(
		query,
		project.ID,
		project.Name,
		project.Description,
		project.DocID,
		project.SheetID,
		project.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}

	logger.Info("Project created", zap.String("project_id", project.ID), zap.String("name", project.Name))
	return nil
}

func (c *Client) GetProject(id string) (*models.Project, error) {
	query := `SELECT id, name, description, doc_id, sheet_id, created_at FROM projects WHERE id = ?`

	var p models.Project
	var createdAt int64

	err := c.db.QueryRow(query, id).Scan(&p.ID, &p.Name, &p.Description, &p.DocID, &p.SheetID, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	p.CreatedAt = time.Unix(createdAt, 0)
	return &p, nil
}

func (c *Client) ListProjects() ([]models.Project, error) {
	query := `SELECT id, name, description, doc_id, sheet_id, created_at FROM projects ORDER BY created_at DESC`

	rows, err := c.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var p models.Project
		var createdAt int64

		err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.DocID, &p.SheetID, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		p.CreatedAt = time.Unix(createdAt, 0)
		projects = append(projects, p)
	}

	return projects, nil
}

func (c *Client) InsertResource(resource *models.Resource) error {
	query := `INSERT INTO resources (id, project_id, name, parsed_text, uploaded_by, created_at) VALUES (?, ?, ?, ?, ?, ?)`

	_, err := c.db.Exec(
		query,
		resource.ID,
		resource.ProjectID,
		resource.Name,
		resource.ParsedText,
		resource.UploadedBy,
		resource.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert resource: %w", err)
	}

	logger.Info("Resource stored",
		zap.String("resource_id", resource.ID),
		zap.String("project_id", resource.ProjectID),
		zap.String("name", resource.Name),
	)
	return nil
}

func (c *Client) ListResourcesByProject(projectID string) ([]models.Resource, error) {
	query := `SELECT id, project_id, name, uploaded_by, created_at FROM resources WHERE project_id = ? ORDER BY created_at DESC`

	rows, err := c.db.Query(query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	defer rows.Close()

	var resources []models.Resource
	for rows.Next() {
		var r models.Resource
		var createdAt int64

		err := rows.Scan(&r.ID, &r.ProjectID, &r.Name, &r.UploadedBy, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.CreatedAt = time.Unix(createdAt, 0)
		resources = append(resources, r)
	}

	return resources, nil
}

// GetResourceText returns the stored parsed text for a resource. The second
// return value reports whether the resource row exists; a missing row is not
// an error.
func (c *Client) GetResourceText(resourceID string) (string, bool, error) {
	query := `SELECT parsed_text FROM resources WHERE id = ?`

	var text string
	err := c.db.QueryRow(query, resourceID).Scan(&text)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get resource text: %w", err)
	}

	return text, true, nil
}

func (c *Client) InsertChatRecord(record *models.ChatRecord) error {
	query := `
		INSERT INTO chat_history (id, project_id, user_id, query, translated_query, answer, resource_count, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		record.ID,
		record.ProjectID,
		record.UserID,
		record.Query,
		record.TranslatedQuery,
		record.Answer,
		record.ResourceCount,
		record.LatencyMS,
		record.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert chat record: %w", err)
	}

	logger.Debug("Chat turn recorded",
		zap.String("chat_id", record.ID),
		zap.String("project_id", record.ProjectID),
	)
	return nil
}

func (c *Client) GetChatHistory(projectID string, limit int) ([]models.ChatRecord, error) {
	query := `
		SELECT id, project_id, user_id, query, translated_query, answer, resource_count, latency_ms, created_at
		FROM chat_history
		WHERE project_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat history: %w", err)
	}
	defer rows.Close()

	var records []models.ChatRecord
	for rows.Next() {
		var r models.ChatRecord
		var createdAt int64

		err := rows.Scan(&r.ID, &r.ProjectID, &r.UserID, &r.Query, &r.TranslatedQuery, &r.Answer, &r.ResourceCount, &r.LatencyMS, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, r)
	}

	return records, nil
}
