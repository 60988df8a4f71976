package kb

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// QAPair is one canned question with its canned answer.
type QAPair struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

type qaFile struct {
	QAPairs []QAPair `json:"qa_pairs" yaml:"qa_pairs"`
}

// LoadFile reads QA pairs from a JSON or YAML file with a top-level qa_pairs list.
func LoadFile(path string) ([]QAPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read knowledge base %s", path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

func ParseJSON(data []byte) ([]QAPair, error) {
	var f qaFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "parse knowledge base json")
	}
	return validate(f.QAPairs)
}

func ParseYAML(data []byte) ([]QAPair, error) {
	var f qaFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "parse knowledge base yaml")
	}
	return validate(f.QAPairs)
}

func validate(pairs []QAPair) ([]QAPair, error) {
	if len(pairs) == 0 {
		return nil, errors.New("knowledge base has no qa_pairs")
	}
	for i, p := range pairs {
		if strings.TrimSpace(p.Question) == "" {
			return nil, errors.Errorf("qa_pairs[%d]: empty question", i)
		}
	}
	return pairs, nil
}
