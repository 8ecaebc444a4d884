package recognition

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/disintegration/imaging"
	onnxrt "github.com/yalue/onnxruntime_go"
)

// ONNXConfig points at a CTC text line recognition model and its dictionary.
type ONNXConfig struct {
	ModelPath   string
	DictPath    string
	LibraryPath string
	// ImageHeight is the line height the model expects.
	ImageHeight int
	MaxWidth    int
	NumThreads  int
	// MaxLines bounds how many text lines of one image are recognized.
	MaxLines int
}

// ONNXBackend runs a local neural recognizer. The session is created on the
// first call and shared by every call after that.
type ONNXBackend struct {
	cfg ONNXConfig

	once    sync.Once
	engine  *onnxEngine
	initErr error
	failed  atomic.Bool
}

type onnxEngine struct {
	session *onnxrt.DynamicAdvancedSession
	charset *Charset
}

func NewONNXBackend(cfg ONNXConfig) *ONNXBackend {
	if cfg.ImageHeight <= 0 {
		cfg.ImageHeight = 48
	}
	if cfg.MaxWidth <= 0 {
		cfg.MaxWidth = 1600
	}
	if cfg.NumThreads <= 0 {
		cfg.NumThreads = 2
	}
	if cfg.MaxLines <= 0 {
		cfg.MaxLines = 32
	}
	return &ONNXBackend{cfg: cfg}
}

func (o *ONNXBackend) Name() string { return "onnx" }

// Available checks the model files exist; a failed lazy initialization also
// makes the backend unavailable from then on.
func (o *ONNXBackend) Available() bool {
	if o.cfg.ModelPath == "" || o.cfg.DictPath == "" {
		return false
	}
	for _, p := range []string{o.cfg.ModelPath, o.cfg.DictPath} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return !o.failed.Load()
}

func (o *ONNXBackend) Modes() []Mode { return []Mode{ModeDefault} }

func (o *ONNXBackend) init() {
	o.once.Do(func() {
		o.engine, o.initErr = newONNXEngine(o.cfg)
		o.failed.Store(o.initErr != nil)
	})
}

func newONNXEngine(cfg ONNXConfig) (*onnxEngine, error) {
	if cfg.LibraryPath != "" {
		onnxrt.SetSharedLibraryPath(cfg.LibraryPath)
	}
	if !onnxrt.IsInitialized() {
		if err := onnxrt.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnx runtime: %w", err)
		}
	}

	inputs, outputs, err := onnxrt.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("read model info: %w", err)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, fmt.Errorf("expected 1 input and 1 output, got %d and %d", len(inputs), len(outputs))
	}

	charset, err := LoadCharset(cfg.DictPath)
	if err != nil {
		return nil, err
	}

	opts, err := onnxrt.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer opts.Destroy()
	if err := opts.SetIntraOpNumThreads(cfg.NumThreads); err != nil {
		return nil, fmt.Errorf("set thread count: %w", err)
	}

	session, err := onnxrt.NewDynamicAdvancedSession(
		cfg.ModelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}
	return &onnxEngine{session: session, charset: charset}, nil
}

func (o *ONNXBackend) Recognize(ctx context.Context, img image.Image, _ Mode) (string, error) {
	o.init()
	if o.initErr != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, o.initErr)
	}
	lines := segmentLines(img, o.cfg.MaxLines)
	if len(lines) == 0 {
		return "", nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, shape := o.batchTensor(lines)
	input, err := onnxrt.NewTensor(onnxrt.NewShape(shape...), data)
	if err != nil {
		return "", fmt.Errorf("create input tensor: %w", err)
	}
	defer input.Destroy()

	outputs := []onnxrt.Value{nil}
	if err := o.engine.session.Run([]onnxrt.Value{input}, outputs); err != nil {
		return "", fmt.Errorf("inference failed: %w", err)
	}
	defer func() {
		if outputs[0] != nil {
			outputs[0].Destroy()
		}
	}()

	logits, ok := outputs[0].(*onnxrt.Tensor[float32])
	if !ok {
		return "", fmt.Errorf("expected float32 output, got %T", outputs[0])
	}
	outShape := logits.GetShape()
	if len(outShape) != 3 {
		return "", errors.New("unexpected output rank")
	}
	classes := int64(len(o.engine.charset.Tokens) + 1)
	classesFirst := outShape[1] == classes && outShape[2] != classes

	var text []string
	for _, seq := range decodeCTCGreedy(logits.GetData(), []int64(outShape), classesFirst) {
		var b strings.Builder
		for _, class := range seq {
			b.WriteString(o.engine.charset.Token(class))
		}
		if line := strings.TrimSpace(b.String()); line != "" {
			text = append(text, line)
		}
	}
	return strings.Join(text, "\n"), nil
}

// batchTensor resizes every line to the model height, pads them to a common
// width and lays them out as NCHW floats in [0,1].
func (o *ONNXBackend) batchTensor(lines []image.Image) ([]float32, []int64) {
	h := o.cfg.ImageHeight
	resized := make([]*image.NRGBA, len(lines))
	maxW := 8
	for i, l := range lines {
		b := l.Bounds()
		w := b.Dx() * h / max(b.Dy(), 1)
		w = min(max(w, 8), o.cfg.MaxWidth)
		resized[i] = imaging.Resize(l, w, h, imaging.Linear)
		maxW = max(maxW, w)
	}
	maxW = (maxW + 7) / 8 * 8

	plane := h * maxW
	data := make([]float32, len(lines)*3*plane)
	for n, img := range resized {
		w := img.Bounds().Dx()
		off := n * 3 * plane
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				i := y*img.Stride + x*4
				p := y*maxW + x
				data[off+p] = float32(img.Pix[i]) / 255
				data[off+plane+p] = float32(img.Pix[i+1]) / 255
				data[off+2*plane+p] = float32(img.Pix[i+2]) / 255
			}
		}
	}
	return data, []int64{int64(len(lines)), 3, int64(h), int64(maxW)}
}

// segmentLines splits an image into horizontal text bands using the row ink
// profile. The whole image is returned as one band when no split is found.
func segmentLines(img image.Image, maxLines int) []image.Image {
	if img == nil {
		return nil
	}
	gray := imaging.Grayscale(img)
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	var sum int
	for i := 0; i < len(gray.Pix); i += 4 {
		sum += int(gray.Pix[i])
	}
	mean := sum / (w * h)
	darkInk := mean >= 128

	ink := make([]bool, h)
	for y := 0; y < h; y++ {
		count := 0
		row := gray.Pix[y*gray.Stride : y*gray.Stride+w*4]
		for x := 0; x < len(row); x += 4 {
			v := int(row[x])
			if (darkInk && v < mean-40) || (!darkInk && v > mean+40) {
				count++
			}
		}
		ink[y] = count*100 > w
	}

	const minBand, pad = 8, 3
	var bands []image.Image
	for y := 0; y < h && len(bands) < maxLines; {
		if !ink[y] {
			y++
			continue
		}
		start := y
		for y < h && ink[y] {
			y++
		}
		if y-start < minBand {
			continue
		}
		rect := image.Rect(0, max(start-pad, 0), w, min(y+pad, h))
		bands = append(bands, imaging.Crop(gray, rect))
	}
	if len(bands) == 0 {
		return []image.Image{gray}
	}
	return bands
}
