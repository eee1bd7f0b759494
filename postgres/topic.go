package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/meikuraledutech/colosseum"
)

// AddTopic appends a topic to the catalog. The catalog is append-only; a
// BIGSERIAL position column preserves insertion order.
func (s *PGStore) AddTopic(ctx context.Context, topic *colosseum.Topic) error {
	if topic.ID == "" {
		topic.ID = uuid.New().String()
	}

	err := s.db.QueryRow(ctx,
		`INSERT INTO debate_topics (id, title, description, tags)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		topic.ID, topic.Title, topic.Description, topic.Tags,
	).Scan(&topic.CreatedAt)
	if err != nil {
		return fmt.Errorf("colosseum: add topic: %w", err)
	}

	return nil
}

// ListTopics returns the catalog in insertion order.
func (s *PGStore) ListTopics(ctx context.Context) ([]colosseum.Topic, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, title, description, tags, created_at
		 FROM debate_topics ORDER BY position ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("colosseum: list topics: %w", err)
	}
	defer rows.Close()

	var topics []colosseum.Topic
	for rows.Next() {
		var topic colosseum.Topic
		if err := rows.Scan(&topic.ID, &topic.Title, &topic.Description, &topic.Tags, &topic.CreatedAt); err != nil {
			return nil, fmt.Errorf("colosseum: scan topic: %w", err)
		}
		topics = append(topics, topic)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("colosseum: list topics: %w", err)
	}

	return topics, nil
}
