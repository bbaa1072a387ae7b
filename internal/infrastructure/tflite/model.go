// Package tflite запускает предобученные модели через TensorFlow Lite.
package tflite

import (
	"runtime"

	"github.com/pkg/errors"
	"github.com/tphakala/go-tflite"
	"go.uber.org/zap"
)

// model загруженная модель вместе с интерпретатором
type model struct {
	path        string
	model       *tflite.Model
	options     *tflite.InterpreterOptions
	interpreter *tflite.Interpreter
}

func loadModel(path string, threads int, logger *zap.Logger) (*model, error) {
	m := tflite.NewModelFromFile(path)
	if m == nil {
		return nil, errors.Errorf("cannot load TensorFlow Lite model %s", path)
	}

	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	options := tflite.NewInterpreterOptions()
	options.SetNumThread(threads)
	options.SetErrorReporter(func(msg string, _ any) {
		logger.Error("TFLite error", zap.String("model", path), zap.String("message", msg))
	}, nil)

	interpreter := tflite.NewInterpreter(m, options)
	if interpreter == nil {
		options.Delete()
		m.Delete()
		return nil, errors.Errorf("cannot create interpreter for %s", path)
	}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		interpreter.Delete()
		options.Delete()
		m.Delete()
		return nil, errors.Errorf("tensor allocation failed for %s: %v", path, status)
	}

	return &model{path: path, model: m, options: options, interpreter: interpreter}, nil
}

// inputShape форма первого входа
func (m *model) inputShape() []int {
	t := m.interpreter.GetInputTensor(0)
	if t == nil {
		return nil
	}
	return dims(t)
}

// run копирует вход, вызывает модель и возвращает копию первого выхода с его формой
func (m *model) run(input []float32) ([]float32, []int, error) {
	in := m.interpreter.GetInputTensor(0)
	if in == nil {
		return nil, nil, errors.New("cannot get input tensor")
	}
	if in.Type() != tflite.Float32 {
		return nil, nil, errors.Errorf("unsupported input type %v, want float32", in.Type())
	}
	dst := in.Float32s()
	if len(dst) != len(input) {
		return nil, nil, errors.Errorf("input size %d, model expects %d", len(input), len(dst))
	}
	copy(dst, input)

	if status := m.interpreter.Invoke(); status != tflite.OK {
		return nil, nil, errors.Errorf("tensor invoke failed: %v", status)
	}

	out := m.interpreter.GetOutputTensor(0)
	if out == nil {
		return nil, nil, errors.New("cannot get output tensor")
	}
	values := make([]float32, len(out.Float32s()))
	copy(values, out.Float32s())
	return values, dims(out), nil
}

func (m *model) close() {
	if m == nil {
		return
	}
	m.interpreter.Delete()
	m.options.Delete()
	m.model.Delete()
}

func dims(t *tflite.Tensor) []int {
	shape := make([]int, t.NumDims())
	for i := range shape {
		shape[i] = t.Dim(i)
	}
	return shape
}
