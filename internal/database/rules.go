package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Rule is a scoring rule template. The rule library is configuration only:
// the points aggregator scores 1 point per kilometer and does not evaluate
// rules against track logs.
type Rule struct {
	ID          string
	GroupID     string
	Name        string
	Description string
	Category    string // 'distance', 'pace', 'elevation', 'count'
	Threshold   float64
	Points      float64
	CreatedAt   int64
}

// RuleGroup organizes rule templates
type RuleGroup struct {
	ID          string
	Name        string
	Description string
	CreatedAt   int64
}

// EventRule is a per-event rule selection with customized values
type EventRule struct {
	ID              string
	EventID         string
	RuleID          string
	CustomThreshold *float64
	CustomPoints    *float64
	Enabled         bool
	CreatedAt       int64
}

// CreateRuleGroup inserts a rule group
func (db *DB) CreateRuleGroup(g *RuleGroup) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	g.CreatedAt = time.Now().Unix()

	_, err := db.conn.Exec(`
		INSERT INTO rule_groups (id, name, description, created_at) VALUES (?, ?, ?, ?)
	`, g.ID, g.Name, nullString(g.Description), g.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create rule group: %w", err)
	}
	return nil
}

// CreateRule inserts a rule template
func (db *DB) CreateRule(r *Rule) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.CreatedAt = time.Now().Unix()

	_, err := db.conn.Exec(`
		INSERT INTO rules (id, group_id, name, description, category, threshold, points, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, nullString(r.GroupID), r.Name, nullString(r.Description),
		r.Category, r.Threshold, r.Points, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}
	return nil
}

// ListRules returns all rule templates
func (db *DB) ListRules() ([]*Rule, error) {
	rows, err := db.conn.Query(`
		SELECT id, group_id, name, description, category, threshold, points, created_at
		FROM rules ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []*Rule
	for rows.Next() {
		var r Rule
		var groupID, description sql.NullString
		if err := rows.Scan(&r.ID, &groupID, &r.Name, &description,
			&r.Category, &r.Threshold, &r.Points, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		r.GroupID = groupID.String
		r.Description = description.String
		rules = append(rules, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return rules, nil
}

// AttachEventRule selects a rule for an event with optional customization
func (db *DB) AttachEventRule(er *EventRule) error {
	if er.ID == "" {
		er.ID = uuid.NewString()
	}
	er.CreatedAt = time.Now().Unix()

	_, err := db.conn.Exec(`
		INSERT INTO event_rules (id, event_id, rule_id, custom_threshold, custom_points, enabled, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, er.ID, er.EventID, er.RuleID, er.CustomThreshold, er.CustomPoints, er.Enabled, er.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to attach event rule: %w", err)
	}
	return nil
}

// ListEventRules returns the rule selections for an event
func (db *DB) ListEventRules(eventID string) ([]*EventRule, error) {
	rows, err := db.conn.Query(`
		SELECT id, event_id, rule_id, custom_threshold, custom_points, enabled, created_at
		FROM event_rules WHERE event_id = ? ORDER BY created_at
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list event rules: %w", err)
	}
	defer rows.Close()

	var eventRules []*EventRule
	for rows.Next() {
		var er EventRule
		if err := rows.Scan(&er.ID, &er.EventID, &er.RuleID,
			&er.CustomThreshold, &er.CustomPoints, &er.Enabled, &er.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event rule: %w", err)
		}
		eventRules = append(eventRules, &er)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rules: %w", err)
	}

	return eventRules, nil
}
