package curriculum

// Question is a single multiple-choice question attached to a content item.
type Question struct {
	Prompt       string   `yaml:"prompt" json:"prompt"`
	Options      []string `yaml:"options" json:"options"`
	CorrectIndex int      `yaml:"correct" json:"correct_index"`
	Explanation  string   `yaml:"explanation" json:"explanation"`
	Difficulty   int      `yaml:"difficulty,omitempty" json:"difficulty,omitempty"`
	Concept      string   `yaml:"concept,omitempty" json:"concept,omitempty"`
}

// ContentItem is an immutable learning item in the catalog.
type ContentItem struct {
	ID                 string     `yaml:"id" json:"id"`
	Title              string     `yaml:"title" json:"title"`
	Category           string     `yaml:"category" json:"category"`
	Level              string     `yaml:"-" json:"level"`
	Difficulty         int        `yaml:"difficulty" json:"difficulty"`
	Prerequisites      []string   `yaml:"prerequisites" json:"prerequisites"`
	Summary            string     `yaml:"summary,omitempty" json:"summary,omitempty"`
	LearningObjectives []string   `yaml:"learning_objectives,omitempty" json:"learning_objectives,omitempty"`
	Examples           []string   `yaml:"examples,omitempty" json:"examples,omitempty"`
	Questions          []Question `yaml:"questions" json:"questions"`
}

// LevelDocument is the on-disk shape of one catalog level (one YAML file per level).
type LevelDocument struct {
	Level string        `yaml:"level"`
	Order int           `yaml:"order"`
	Items []ContentItem `yaml:"items"`
}
