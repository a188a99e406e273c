package model

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// DefaultModelID is the pretrained classifier shipped with the binary
const DefaultModelID = "sst2-lexicon-uncased"

//go:embed assets/*.json
var assets embed.FS

// Errors returned while materializing a model artifact
var (
	ErrUnknownModel     = errors.New("unknown model id")
	ErrChecksumMismatch = errors.New("artifact checksum mismatch")
	ErrInvalidArtifact  = errors.New("invalid model artifact")
)

// Artifact is a pretrained lexicon classifier: per-token class weights plus
// the tokenizer settings it was trained with.
type Artifact struct {
	ModelID        string               `json:"model_id"`
	Task           string               `json:"task"`
	Labels         []string             `json:"labels"`
	Lowercase      bool                 `json:"lowercase"`
	MaxLength      int                  `json:"max_length"`
	Bias           []float64            `json:"bias"`
	NegationScope  int                  `json:"negation_scope"`
	NegationFactor float64              `json:"negation_factor"`
	Negators       []string             `json:"negators"`
	ScopeBreaks    []string             `json:"scope_breaks"`
	Intensifiers   map[string]float64   `json:"intensifiers"`
	Vocab          map[string][]float64 `json:"vocab"`
}

// ReadArtifact fetches the raw artifact bytes for id. A non-empty path
// overrides the embedded copy; a non-empty checksum must match the bytes.
func ReadArtifact(id, path, checksum string) ([]byte, error) {
	var (
		raw []byte
		err error
	)
	if path != "" {
		raw, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read artifact %s: %w", path, err)
		}
	} else {
		raw, err = assets.ReadFile("assets/" + id + ".json")
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrUnknownModel, id)
			}
			return nil, fmt.Errorf("failed to read embedded artifact: %w", err)
		}
	}

	if checksum != "" {
		sum := sha256.Sum256(raw)
		if got := hex.EncodeToString(sum[:]); !strings.EqualFold(got, checksum) {
			return nil, fmt.Errorf("%w: want %s, got %s", ErrChecksumMismatch, checksum, got)
		}
	}
	return raw, nil
}

// ParseArtifact decodes and validates an artifact
func ParseArtifact(raw []byte) (*Artifact, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var a Artifact
	if err := dec.Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// Validate checks the artifact is internally consistent
func (a *Artifact) Validate() error {
	if a.ModelID == "" {
		return fmt.Errorf("%w: missing model_id", ErrInvalidArtifact)
	}
	if a.Task != "text-classification" {
		return fmt.Errorf("%w: unsupported task %q", ErrInvalidArtifact, a.Task)
	}
	if len(a.Labels) < 2 {
		return fmt.Errorf("%w: need at least two labels", ErrInvalidArtifact)
	}
	seen := make(map[string]struct{}, len(a.Labels))
	for _, l := range a.Labels {
		if l == "" {
			return fmt.Errorf("%w: empty label", ErrInvalidArtifact)
		}
		if _, dup := seen[l]; dup {
			return fmt.Errorf("%w: duplicate label %q", ErrInvalidArtifact, l)
		}
		seen[l] = struct{}{}
	}
	if len(a.Bias) != len(a.Labels) {
		return fmt.Errorf("%w: bias has %d entries for %d labels", ErrInvalidArtifact, len(a.Bias), len(a.Labels))
	}
	if a.MaxLength <= 0 {
		return fmt.Errorf("%w: max_length must be positive", ErrInvalidArtifact)
	}
	if a.NegationScope < 0 || a.NegationFactor < 0 {
		return fmt.Errorf("%w: negation settings must not be negative", ErrInvalidArtifact)
	}
	if len(a.Vocab) == 0 {
		return fmt.Errorf("%w: empty vocab", ErrInvalidArtifact)
	}
	for tok, w := range a.Vocab {
		if len(w) != len(a.Labels) {
			return fmt.Errorf("%w: token %q has %d weights for %d labels", ErrInvalidArtifact, tok, len(w), len(a.Labels))
		}
	}
	for tok, f := range a.Intensifiers {
		if f <= 0 {
			return fmt.Errorf("%w: intensifier %q must be positive", ErrInvalidArtifact, tok)
		}
	}
	return nil
}
