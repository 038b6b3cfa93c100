// Package model loads the pre-trained classifier and runs raw inference.
package model

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"go-produce-inspector/internal/classifier"
	"go-produce-inspector/internal/logger"
)

// Opener loads a model from its backing artifact.
type Opener func() (classifier.Model, error)

// Loader loads a model once and hands the same instance to every caller.
// A failed load is remembered; later calls report it without retrying.
type Loader struct {
	name string
	open Opener

	once  sync.Once
	mu    sync.RWMutex
	model classifier.Model
	err   error
}

// NewLoader creates a lazy loader. name is used in logs only.
func NewLoader(name string, open Opener) *Loader {
	return &Loader{name: name, open: open}
}

// Get returns the shared model, loading it on the first call.
func (l *Loader) Get() (classifier.Model, error) {
	l.once.Do(l.load)

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.err != nil {
		return nil, l.err
	}
	return l.model, nil
}

func (l *Loader) load() {
	start := time.Now()
	m, err := l.open()

	l.mu.Lock()
	defer l.mu.Unlock()

	if err == nil && m == nil {
		err = fmt.Errorf("opener returned no model")
	}
	if err != nil {
		l.err = fmt.Errorf("%w: load %s: %v", classifier.ErrInferenceUnavailable, l.name, err)
		logger.WithError(err).WithField("model", l.name).Error("Failed to load model")
		return
	}

	l.model = m
	logger.WithFields(logrus.Fields{
		"model":        l.name,
		"load_time_ms": time.Since(start).Milliseconds(),
	}).Info("Model loaded")
}

// Close releases the model if it was loaded.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.model == nil {
		return nil
	}
	err := l.model.Close()
	l.model = nil
	if l.err == nil {
		l.err = fmt.Errorf("%w: %s closed", classifier.ErrInferenceUnavailable, l.name)
	}
	return err
}

var _ classifier.Provider = (*Loader)(nil)
