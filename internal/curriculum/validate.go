package curriculum

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed level.schema.json
var levelSchemaJSON string

var (
	levelSchemaOnce sync.Once
	levelSchema     *gojsonschema.Schema
	levelSchemaErr  error
)

func compiledLevelSchema() (*gojsonschema.Schema, error) {
	levelSchemaOnce.Do(func() {
		levelSchema, levelSchemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(levelSchemaJSON))
	})
	return levelSchema, levelSchemaErr
}

// ValidateDocument checks a decoded level document (the generic map produced
// by yaml.Unmarshal into any) against the level JSON schema.
func ValidateDocument(doc any) error {
	schema, err := compiledLevelSchema()
	if err != nil {
		return fmt.Errorf("compiling level schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validating level document: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("level document does not match schema: %s", strings.Join(msgs, "; "))
}

// validateDocuments performs the cross-document checks the schema cannot
// express. Returns a combined error describing all problems found.
func validateDocuments(docs []LevelDocument) error {
	if len(docs) == 0 {
		return errors.New("catalog has no levels")
	}

	var errs []string
	levelSet := make(map[string]bool, len(docs))
	orderSet := make(map[int]string, len(docs))
	idSet := make(map[string]bool)

	for _, doc := range docs {
		if doc.Level == "" {
			errs = append(errs, "level with empty name")
		}
		if levelSet[doc.Level] {
			errs = append(errs, fmt.Sprintf("duplicate level: %q", doc.Level))
		}
		levelSet[doc.Level] = true
		if other, ok := orderSet[doc.Order]; ok {
			errs = append(errs, fmt.Sprintf("levels %q and %q share order %d", other, doc.Level, doc.Order))
		}
		orderSet[doc.Order] = doc.Level

		for _, item := range doc.Items {
			if item.ID == "" {
				errs = append(errs, fmt.Sprintf("level %q has an item with empty id", doc.Level))
				continue
			}
			if idSet[item.ID] {
				errs = append(errs, fmt.Sprintf("duplicate item ID: %q", item.ID))
			}
			idSet[item.ID] = true

			if item.Difficulty < 1 || item.Difficulty > 10 {
				errs = append(errs, fmt.Sprintf("item %q difficulty %d outside 1-10", item.ID, item.Difficulty))
			}
			if len(item.Questions) == 0 {
				errs = append(errs, fmt.Sprintf("item %q has no questions", item.ID))
			}
			for i, q := range item.Questions {
				if len(q.Options) < 2 {
					errs = append(errs, fmt.Sprintf("item %q question %d needs at least 2 options", item.ID, i))
				}
				if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
					errs = append(errs, fmt.Sprintf("item %q question %d correct index %d out of range", item.ID, i, q.CorrectIndex))
				}
			}
		}
	}

	// Dangling prerequisites
	for _, doc := range docs {
		for _, item := range doc.Items {
			for _, prereq := range item.Prerequisites {
				if !idSet[prereq] {
					errs = append(errs, fmt.Sprintf("item %q references nonexistent prerequisite %q", item.ID, prereq))
				}
			}
		}
	}

	if len(errs) == 0 {
		if cycle := findCycle(docs); len(cycle) > 0 {
			errs = append(errs, fmt.Sprintf("prerequisite cycle among items: %s", strings.Join(cycle, ", ")))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid catalog:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// findCycle runs Kahn's algorithm over the prerequisite graph and returns the
// IDs that could not be ordered (nil when the graph is acyclic).
func findCycle(docs []LevelDocument) []string {
	inDegree := make(map[string]int)
	dependents := make(map[string][]string)
	var order []string

	for _, doc := range docs {
		for _, item := range doc.Items {
			order = append(order, item.ID)
			inDegree[item.ID] = len(item.Prerequisites)
			for _, prereq := range item.Prerequisites {
				dependents[prereq] = append(dependents[prereq], item.ID)
			}
		}
	}

	var queue []string
	for _, id := range order {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, dep := range dependents[id] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if visited == len(order) {
		return nil
	}
	var stuck []string
	for _, id := range order {
		if inDegree[id] > 0 {
			stuck = append(stuck, id)
		}
	}
	return stuck
}
