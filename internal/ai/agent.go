package ai

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	openRouterBaseURL = "https://openrouter.ai/api/v1"
	defaultModel      = "openai/gpt-4.1-mini"
)

// AgentConfig holds configuration for the analytics assistant.
type AgentConfig struct {
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	OpenRouterAPIKey string
	// Model as understood by OpenRouter, e.g. "openai/gpt-4.1-mini".
	Model string

	Logger *logrus.Logger
}

// Agent answers questions about swap attempts by generating SQL with an LLM
// and running it against ClickHouse.
type Agent struct {
	llm      llms.Model
	db       *sql.DB
	database string
	logger   *logrus.Logger
}

func NewAgent(ctx context.Context, cfg AgentConfig) (*Agent, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.OpenRouterAPIKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.ClickHouseDatabase == "" {
		cfg.ClickHouseDatabase = "swaps"
	}

	llm, err := openai.New(
		openai.WithToken(cfg.OpenRouterAPIKey),
		openai.WithBaseURL(openRouterBaseURL),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenRouter LLM: %w", err)
	}

	db := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{cfg.ClickHouseAddr},
		Auth: clickhouse.Auth{
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
		},
	})
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse from AI agent: %w", err)
	}

	cfg.Logger.WithFields(logrus.Fields{
		"addr":     cfg.ClickHouseAddr,
		"database": cfg.ClickHouseDatabase,
		"model":    cfg.Model,
	}).Info("initialized AI agent")

	return newAgent(llm, db, cfg.ClickHouseDatabase, cfg.Logger), nil
}

func newAgent(llm llms.Model, db *sql.DB, database string, logger *logrus.Logger) *Agent {
	return &Agent{llm: llm, db: db, database: database, logger: logger}
}

func (a *Agent) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// AskResult carries the executed SQL alongside the summarised answer.
type AskResult struct {
	SQL    string
	Answer string
}

func (a *Agent) Ask(ctx context.Context, question string) (*AskResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question is required")
	}

	query, err := a.generateSQL(ctx, question)
	if err != nil {
		return nil, err
	}
	rows, err := a.runQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	answer, err := a.summarise(ctx, question, query, rows)
	if err != nil {
		return nil, err
	}
	return &AskResult{SQL: query, Answer: answer}, nil
}

func (a *Agent) generateSQL(ctx context.Context, question string) (string, error) {
	resp, err := llms.GenerateFromSinglePrompt(ctx, a.llm, sqlPrompt(a.database, question), llms.WithMaxTokens(512))
	if err != nil {
		return "", fmt.Errorf("LLM SQL generation failed: %w", err)
	}

	query := sanitizeSQL(resp)
	if err := validateSQL(query, a.database); err != nil {
		return "", err
	}
	a.logger.WithField("sql", query).Debug("generated SQL from question")
	return query, nil
}

func (a *Agent) runQuery(ctx context.Context, query string) (string, error) {
	if a.db == nil {
		return "", fmt.Errorf("analytics database not configured")
	}
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return "", fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return "", fmt.Errorf("failed to get columns: %w", err)
	}

	out := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return "", fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("row iteration error: %w", err)
	}

	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to marshal rows to JSON: %w", err)
	}
	return string(data), nil
}

func (a *Agent) summarise(ctx context.Context, question, query, rowsJSON string) (string, error) {
	resp, err := llms.GenerateFromSinglePrompt(ctx, a.llm, summaryPrompt(question, query, rowsJSON), llms.WithMaxTokens(512))
	if err != nil {
		return "", fmt.Errorf("LLM summarisation failed: %w", err)
	}
	return strings.TrimSpace(resp), nil
}

func sqlPrompt(database, question string) string {
	return fmt.Sprintf(`
You write ClickHouse SQL for an EVM swap engine's attempt log.

Use ONLY this table:
%s

Rules:
- Return exactly one SELECT query and nothing else.
- Query %s.%s.
- Filter time with the timestamp column.
- Amounts are raw integer strings in each token's smallest unit.
- For "top" or "most" questions use ORDER BY ... DESC with a LIMIT.
- Never modify data.

Question:
%s
`, schemaDescription(database), database, attemptsTable, question)
}

func summaryPrompt(question, query, rowsJSON string) string {
	return fmt.Sprintf(`
You summarise swap activity for the operator of an EVM swap engine on Base.

Question:
%s

Executed SQL:
%s

Rows as JSON (may be empty):
%s

Answer in a few short bullet points with the key numbers. If there are no rows say no data was found.
`, question, query, rowsJSON)
}
