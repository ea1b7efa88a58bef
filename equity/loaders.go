package equity

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/domino14/gridwar/cache"
)

const WeightsFilename = "weights.yaml"

const weightsKeyPrefix = "weightsfile:"

// WeightsCacheLoadFunc loads a weights file. The key looks like
// weightsfile:path, where path may itself contain colons.
func WeightsCacheLoadFunc(key string) (interface{}, error) {
	path, ok := strings.CutPrefix(key, weightsKeyPrefix)
	if !ok {
		return nil, errors.New("weightscacheloadfunc - bad cache key: " + key)
	}
	if path == "" {
		return nil, errors.New("cache key missing path")
	}
	return loadWeights(path)
}

func loadWeights(path string) (Weights, error) {
	bts, err := os.ReadFile(path)
	if err != nil {
		return Weights{}, err
	}
	// Unset keys keep their default values.
	w := DefaultWeights()
	if err := yaml.Unmarshal(bts, &w); err != nil {
		return Weights{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if w.Base < 2 {
		return Weights{}, fmt.Errorf("%s: base must be at least 2", path)
	}
	log.Debug().Str("path", path).Interface("weights", w).Msg("loaded-weights")
	return w, nil
}

// NewEvaluatorFromDataPath returns a heuristic evaluator using the
// weights file in dataPath if there is one, and the default weights
// otherwise.
func NewEvaluatorFromDataPath(dataPath, filename string) *HeuristicEvaluator {
	if filename == "" {
		filename = WeightsFilename
	}
	path := filepath.Join(dataPath, filename)
	if _, err := os.Stat(path); err != nil {
		return NewHeuristicEvaluator(DefaultWeights())
	}
	w, err := cache.Load(weightsKeyPrefix+path, WeightsCacheLoadFunc)
	if err != nil {
		log.Err(err).Msg("loading-weights")
		log.Info().Msg("using default weights")
		return NewHeuristicEvaluator(DefaultWeights())
	}
	return NewHeuristicEvaluator(w.(Weights))
}
