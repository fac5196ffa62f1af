package database

import (
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// AnnotationSummary aggregates the annotations table for the progress
// surface, the stats command and the export metadata.
type AnnotationSummary struct {
	TotalRecords int `json:"total_records"`
	Rated        int `json:"rated"`
	Marked       int `json:"marked"`
}

// GetAnnotationSummary counts all rows, rated rows and marked rows in
// a single query over the raw connection.
func GetAnnotationSummary(db *sql.DB) (AnnotationSummary, error) {
	queryBuilder := psql.Select(
		"COUNT(*)",
		"COALESCE(SUM(CASE WHEN rating > 0 THEN 1 ELSE 0 END), 0)",
		"COALESCE(SUM(CASE WHEN marked = 1 THEN 1 ELSE 0 END), 0)",
	).From("annotations")

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return AnnotationSummary{}, fmt.Errorf("failed to build SQL query for GetAnnotationSummary: %w", err)
	}

	var summary AnnotationSummary
	err = db.QueryRow(sqlStr, args...).Scan(&summary.TotalRecords, &summary.Rated, &summary.Marked)
	if err != nil {
		return AnnotationSummary{}, fmt.Errorf("failed to query annotation summary: %w", err)
	}
	return summary, nil
}

// GetRatingDistribution returns how many rows carry each rating value,
// unrated rows excluded.
func GetRatingDistribution(db *sql.DB) (map[int]int, error) {
	queryBuilder := psql.Select("rating", "COUNT(*)").
		From("annotations").
		Where(sq.Gt{"rating": 0}).
		GroupBy("rating").
		OrderBy("rating ASC")

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL query for GetRatingDistribution: %w", err)
	}

	rows, err := db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rating distribution: %w", err)
	}
	defer rows.Close()

	dist := make(map[int]int)
	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			return nil, fmt.Errorf("failed to scan rating distribution row: %w", err)
		}
		dist[rating] = count
	}
	return dist, rows.Err()
}

// ListAnnotators returns the distinct usernames that have written rows.
func ListAnnotators(db *sql.DB) ([]string, error) {
	queryBuilder := psql.Select("username").Distinct().
		From("annotations").
		OrderBy("username ASC")

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL query for ListAnnotators: %w", err)
	}

	rows, err := db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query annotators: %w", err)
	}
	defer rows.Close()

	var annotators []string
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, fmt.Errorf("failed to scan annotator row: %w", err)
		}
		annotators = append(annotators, username)
	}
	return annotators, rows.Err()
}
