package classifier

import (
	"errors"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ErrEngineClosed is returned by Score after Close.
var ErrEngineClosed = errors.New("engine is closed")

var (
	runtimeMu    sync.Mutex
	runtimeReady bool
)

// EngineOptions configures the ONNX Runtime session.
type EngineOptions struct {
	// LibraryPath is the onnxruntime shared library; empty uses the
	// platform default lookup.
	LibraryPath    string
	InputName      string
	OutputName     string
	IntraOpThreads int
	NumClasses     int
}

// Engine runs the exported emotion network through ONNX Runtime.
// It is safe for concurrent use; every call allocates its own tensors.
type Engine struct {
	mu          sync.RWMutex
	session     *ort.DynamicAdvancedSession
	inputShape  ort.Shape
	outputShape ort.Shape
	closed      bool
}

// initRuntime brings up the process-wide ONNX Runtime environment once.
// A failed attempt leaves it down so a later call can retry.
func initRuntime(libraryPath string) error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()
	if runtimeReady {
		return nil
	}
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("ORT init failed: %w", err)
	}
	runtimeReady = true
	return nil
}

// ShutdownRuntime destroys the ONNX Runtime environment. Close every Engine
// first. A later NewEngine initializes the environment again.
func ShutdownRuntime() error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()
	if !runtimeReady {
		return nil
	}
	runtimeReady = false
	if err := ort.DestroyEnvironment(); err != nil {
		return fmt.Errorf("destroy environment: %w", err)
	}
	return nil
}

// NewEngine loads modelPath into a new inference session.
func NewEngine(modelPath string, opts EngineOptions) (*Engine, error) {
	if _, err := os.Stat(modelPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("model file missing: %s", modelPath)
		}
		return nil, fmt.Errorf("error checking model file: %w", err)
	}
	if opts.NumClasses <= 0 {
		opts.NumClasses = len(Labels)
	}

	if err := initRuntime(opts.LibraryPath); err != nil {
		return nil, err
	}

	sessionOpts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("SessionOptions creation failed: %w", err)
	}
	defer sessionOpts.Destroy()

	if opts.IntraOpThreads > 0 {
		if err := sessionOpts.SetIntraOpNumThreads(opts.IntraOpThreads); err != nil {
			return nil, fmt.Errorf("set intra-op threads: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{opts.InputName},
		[]string{opts.OutputName},
		sessionOpts,
	)
	if err != nil {
		return nil, fmt.Errorf("model load failed: %w", err)
	}

	return &Engine{
		session:     session,
		inputShape:  ort.NewShape(1, 3, InputSize, InputSize),
		outputShape: ort.NewShape(1, int64(opts.NumClasses)),
	}, nil
}

// Score runs one forward pass over a preprocessed tensor and returns the
// raw per-class outputs.
func (e *Engine) Score(input []float32) ([]float32, error) {
	if want := int(e.inputShape.FlattenedSize()); len(input) != want {
		return nil, fmt.Errorf("invalid input size: expected %d values, got %d", want, len(input))
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, ErrEngineClosed
	}

	inTensor, err := ort.NewTensor(e.inputShape, input)
	if err != nil {
		return nil, fmt.Errorf("tensor creation failed: %w", err)
	}
	defer inTensor.Destroy()

	outTensor, err := ort.NewEmptyTensor[float32](e.outputShape)
	if err != nil {
		return nil, fmt.Errorf("output tensor alloc failed: %w", err)
	}
	defer outTensor.Destroy()

	inputs := []ort.ArbitraryTensor{inTensor}
	outputs := []ort.ArbitraryTensor{outTensor}
	if err := e.session.Run(inputs, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	data := outTensor.GetData()
	scores := make([]float32, len(data))
	copy(scores, data)
	return scores, nil
}

// Close releases the session. The runtime environment stays up for other
// engines; see ShutdownRuntime.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	if e.session == nil {
		return nil
	}
	if err := e.session.Destroy(); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}
