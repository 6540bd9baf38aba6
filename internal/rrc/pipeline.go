package rrc

import (
	"context"
	"fmt"
	"log"
	"time"

	"rrc-inference/internal/models"
)

// RawStore источник сырых измерений
type RawStore interface {
	NetworkTypes(ctx context.Context, deviceID string) ([]string, error)
	Records(ctx context.Context, deviceID, networkType string) ([]models.RawRecord, error)
}

// ModelStore хранилище моделей. ReplaceModel атомарно удаляет старую модель и пишет новую.
type ModelStore interface {
	ReplaceModel(ctx context.Context, deviceID, networkType string, rows []models.ModelRow) error
	DeleteModel(ctx context.Context, deviceID, networkType string) error
}

// Options параметры объема данных
type Options struct {
	CompleteRunLength  int // тест полный, если есть значение на позиции CompleteRunLength-1
	MinCompleteRuns    int
	LargeAlgorithmRuns int
}

// DefaultOptions значения по умолчанию
func DefaultOptions() Options {
	return Options{
		CompleteRunLength:  31,
		MinCompleteRuns:    1,
		LargeAlgorithmRuns: 10,
	}
}

// LabeledPair пара выровненных сегментов с меткой
type LabeledPair struct {
	Small Segment
	Large Segment
	Label Label
}

// Model результат вывода для одного (устройство, сеть)
type Model struct {
	Pairs          []LabeledPair
	CompleteRuns   int
	LargeAlgorithm bool
}

// NetworkResult итог построения для одного типа сети
type NetworkResult struct {
	NetworkType    string  `json:"network_type"`
	Runs           int     `json:"runs"`
	CompleteRuns   int     `json:"complete_runs"`
	LargeAlgorithm bool    `json:"large_algorithm"`
	Segments       int     `json:"segments"`
	Skipped        bool    `json:"skipped"`
	Labels         []Label `json:"labels,omitempty"`
}

// Summary итог построения моделей устройства
type Summary struct {
	DeviceID string          `json:"device_id"`
	Networks []NetworkResult `json:"networks"`
}

// Builder оркестратор конвейера
type Builder struct {
	raw   RawStore
	store ModelStore
	opts  Options
	now   func() time.Time
}

// NewBuilder создает оркестратор
func NewBuilder(raw RawStore, store ModelStore, opts Options) *Builder {
	return &Builder{raw: raw, store: store, opts: opts, now: time.Now}
}

// Build строит модели для всех типов сети устройства
func (b *Builder) Build(ctx context.Context, deviceID string) (Summary, error) {
	summary := Summary{DeviceID: deviceID}

	networks, err := b.raw.NetworkTypes(ctx, deviceID)
	if err != nil {
		return summary, fmt.Errorf("failed to get network types: %w", err)
	}

	for _, network := range networks {
		res, err := b.BuildNetwork(ctx, deviceID, network)
		if err != nil {
			return summary, err
		}
		summary.Networks = append(summary.Networks, res)
	}
	return summary, nil
}

// BuildNetwork строит и сохраняет модель для одного типа сети.
// При недостатке данных старая модель удаляется, это не ошибка.
func (b *Builder) BuildNetwork(ctx context.Context, deviceID, network string) (NetworkResult, error) {
	res := NetworkResult{NetworkType: network}

	records, err := b.raw.Records(ctx, deviceID, network)
	if err != nil {
		return res, fmt.Errorf("failed to get records for %s: %w", network, err)
	}

	small, large := SplitRuns(records)
	res.Runs = len(small)

	model, ok := Infer(small, large, b.opts)
	res.CompleteRuns = model.CompleteRuns
	res.LargeAlgorithm = model.LargeAlgorithm
	if !ok {
		log.Printf("Not enough data for device=%s network=%s (runs=%d, complete=%d), removing model\n",
			deviceID, network, res.Runs, res.CompleteRuns)
		res.Skipped = true
		if err := b.store.DeleteModel(ctx, deviceID, network); err != nil {
			return res, fmt.Errorf("failed to delete stale model: %w", err)
		}
		return res, nil
	}

	rows := ToRows(deviceID, network, model.Pairs, b.now().UTC())
	if err := b.store.ReplaceModel(ctx, deviceID, network, rows); err != nil {
		return res, fmt.Errorf("failed to store model: %w", err)
	}

	res.Segments = len(model.Pairs)
	for _, p := range model.Pairs {
		res.Labels = append(res.Labels, p.Label)
	}
	log.Printf("Model built: device=%s network=%s segments=%d large=%v labels=%v\n",
		deviceID, network, res.Segments, res.LargeAlgorithm, res.Labels)
	return res, nil
}

// Infer весь конвейер над тестами маленьких и больших пакетов.
// false означает, что данных недостаточно и модели нет.
func Infer(small, large [][]int, opts Options) (Model, bool) {
	var model Model
	model.CompleteRuns = CountComplete(small, opts.CompleteRunLength)
	model.LargeAlgorithm = model.CompleteRuns >= opts.LargeAlgorithmRuns

	if len(small) == 0 || len(large) == 0 || model.CompleteRuns < opts.MinCompleteRuns {
		return model, false
	}

	dataSmall := prepare(small, model.LargeAlgorithm)
	dataLarge := prepare(large, model.LargeAlgorithm)
	// после сведения NoData в начале значит, что сигнала не было ни в одном тесте
	if len(dataSmall) == 0 || len(dataLarge) == 0 || dataSmall[0] == NoData || dataLarge[0] == NoData {
		return model, false
	}

	modelSmall := Simplify(MakeModel(dataSmall, model.LargeAlgorithm), dataSmall)
	modelLarge := Simplify(MakeModel(dataLarge, model.LargeAlgorithm), dataLarge)

	regSmall, regLarge := Regularize(modelSmall, dataSmall, modelLarge, dataLarge)
	labels := LabelSegments(regSmall, regLarge)

	model.Pairs = make([]LabeledPair, len(labels))
	for i, label := range labels {
		model.Pairs[i] = LabeledPair{Small: regSmall[i], Large: regLarge[i], Label: label}
	}
	return model, true
}

// prepare сглаживает каждый тест, сводит тесты и при малом объеме сглаживает еще раз
func prepare(runs [][]int, large bool) []int {
	smoothed := make([][]int, 0, len(runs))
	for _, run := range runs {
		smoothed = append(smoothed, Smooth(run))
	}
	data := Aggregate(smoothed)
	if !large {
		// при малом объеме рискуем потерять всплеск перехода, но параметры модели точнее
		data = Smooth(data)
	}
	return data
}

// SplitRuns группирует записи в тесты по TimeDelay == 0.
// Записи до первого нулевого интервала отбрасываются.
func SplitRuns(records []models.RawRecord) (small, large [][]int) {
	for _, r := range records {
		if r.TimeDelay == 0 {
			small = append(small, []int{})
			large = append(large, []int{})
		}
		if len(small) == 0 {
			continue
		}
		small[len(small)-1] = append(small[len(small)-1], normalizeRTT(r.RTTLow))
		large[len(large)-1] = append(large[len(large)-1], normalizeRTT(r.RTTHigh))
	}
	return small, large
}

// CountComplete число тестов длиной не меньше length без потери на последней позиции
func CountComplete(runs [][]int, length int) int {
	if length <= 0 {
		return len(runs)
	}
	count := 0
	for _, run := range runs {
		if len(run) >= length && run[length-1] != LostRTT {
			count++
		}
	}
	return count
}

func normalizeRTT(rtt int) int {
	if rtt <= 0 || rtt > LostRTT {
		return LostRTT
	}
	return rtt
}

// ToRows строки хранилища: сначала все сегменты маленьких пакетов, потом больших
func ToRows(deviceID, network string, pairs []LabeledPair, ts time.Time) []models.ModelRow {
	rows := make([]models.ModelRow, 0, 2*len(pairs))
	for _, small := range []bool{true, false} {
		for _, p := range pairs {
			seg := p.Large
			if small {
				seg = p.Small
			}
			rows = append(rows, models.ModelRow{
				DeviceID:     deviceID,
				NetworkType:  network,
				Small:        small,
				SegmentBegin: seg.Begin(),
				SegmentEnd:   seg.End(),
				Avg:          seg.Average(),
				Label:        string(p.Label),
				Timestamp:    ts,
			})
		}
	}
	return rows
}
