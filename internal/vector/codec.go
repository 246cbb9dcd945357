package vector

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/DRSN-tech/similarity-backend/pkg/e"
)

// Codec проверяет и канонизирует эмбеддинги фиксированной размерности.
// Соглашение: кодек НЕ выполняет L2-нормализацию — ранжирование считает
// полный косинус dot/(‖a‖·‖b‖), поэтому векторы каталога и запроса
// сравнимы независимо от того, нормированы они или нет.
type Codec struct {
	dim int
}

func NewCodec(dim int) *Codec {
	return &Codec{dim: dim}
}

// Dimension возвращает системную размерность D.
func (c *Codec) Dimension() int {
	return c.dim
}

// Normalize проверяет сырой эмбеддинг и возвращает его защитную копию.
// Длина, отличная от D — e.ErrDimensionMismatch; NaN/Inf — e.ErrInvalidVector.
func (c *Codec) Normalize(raw []float32) ([]float32, error) {
	if len(raw) != c.dim {
		return nil, e.Wrap(fmt.Sprintf("expected %d components, got %d", c.dim, len(raw)), e.ErrDimensionMismatch)
	}

	out := make([]float32, c.dim)
	for i, v := range raw {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, e.Wrap(fmt.Sprintf("component %d", i), e.ErrInvalidVector)
		}
		out[i] = v
	}

	return out, nil
}

// Cosine вычисляет косинусную близость двух векторов с накоплением в float64.
// Возвращает e.ErrDimensionMismatch при расхождении длин и 0 для вектора с нулевой нормой.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, e.Wrap(fmt.Sprintf("len(a)=%d len(b)=%d", len(a), len(b)), e.ErrDimensionMismatch)
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// Pack сериализует эмбеддинг в компактное little-endian представление для BYTEA.
func Pack(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Unpack восстанавливает эмбеддинг из бинарного представления.
func Unpack(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, e.Wrap(fmt.Sprintf("payload of %d bytes", len(b)), e.ErrInvalidVector)
	}

	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
