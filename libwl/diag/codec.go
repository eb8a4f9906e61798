package diag

import (
	"math"

	"github.com/2x3systems/worldline/wlmc"
	"github.com/gogo/protobuf/proto"
	"github.com/pkg/errors"
)

const recordCodecVersion = 1

// Record is one persisted statistic: the statistic of sweep Sweep of run RunID on the model keyed by ModelKey.
type Record struct {
	RunID    string
	Sweep    int64
	ModelKey string
	Stat     Statistic
}

// EncodeRecord appends the wire encoding of rec to dst: varints for counts, fixed64 for floats.
func EncodeRecord(dst []byte, rec *Record) []byte {
	buf := proto.NewBuffer(dst)
	st := &rec.Stat

	buf.EncodeVarint(recordCodecVersion)
	buf.EncodeStringBytes(rec.RunID)
	buf.EncodeVarint(uint64(rec.Sweep))
	buf.EncodeStringBytes(rec.ModelKey)

	for _, n := range [...]int{
		st.Vertices, st.Clusters, st.FreeClusters, st.MaxSize,
		st.Infections, st.Recoveries, st.Infected, st.Intervals,
	} {
		buf.EncodeVarint(uint64(n))
	}
	for _, f := range [...]float64{
		st.FreeRatio, st.MeanSize, st.MeanFreeSize,
		st.InfectedFrac, st.MeanDuration, st.MaxDuration,
	} {
		buf.EncodeFixed64(math.Float64bits(f))
	}

	buf.EncodeVarint(uint64(len(st.Sizes)))
	for _, sc := range st.Sizes {
		buf.EncodeVarint(uint64(sc.Size))
		buf.EncodeVarint(uint64(sc.Count))
	}
	return buf.Bytes()
}

// recordDecoder reads fields in order, holding on to the first error.
type recordDecoder struct {
	buf *proto.Buffer
	err error
}

func (dec *recordDecoder) varint() uint64 {
	if dec.err != nil {
		return 0
	}
	var x uint64
	x, dec.err = dec.buf.DecodeVarint()
	return x
}

func (dec *recordDecoder) count() int {
	x := dec.varint()
	if x > math.MaxInt32 && dec.err == nil {
		dec.err = errors.Errorf("count %d out of range", x)
	}
	return int(x)
}

func (dec *recordDecoder) float() float64 {
	if dec.err != nil {
		return 0
	}
	var x uint64
	x, dec.err = dec.buf.DecodeFixed64()
	return math.Float64frombits(x)
}

func (dec *recordDecoder) str() string {
	if dec.err != nil {
		return ""
	}
	var s string
	s, dec.err = dec.buf.DecodeStringBytes()
	return s
}

// DecodeRecord reads a record written by EncodeRecord.
func DecodeRecord(data []byte) (Record, error) {
	dec := recordDecoder{
		buf: proto.NewBuffer(data),
	}
	rec := Record{}
	st := &rec.Stat

	if ver := dec.varint(); dec.err == nil && ver != recordCodecVersion {
		return Record{}, errors.Wrapf(wlmc.ErrBadRecord, "unsupported codec version %d", ver)
	}
	rec.RunID = dec.str()
	rec.Sweep = int64(dec.varint())
	rec.ModelKey = dec.str()

	for _, n := range [...]*int{
		&st.Vertices, &st.Clusters, &st.FreeClusters, &st.MaxSize,
		&st.Infections, &st.Recoveries, &st.Infected, &st.Intervals,
	} {
		*n = dec.count()
	}
	for _, f := range [...]*float64{
		&st.FreeRatio, &st.MeanSize, &st.MeanFreeSize,
		&st.InfectedFrac, &st.MeanDuration, &st.MaxDuration,
	} {
		*f = dec.float()
	}

	numBins := dec.count()
	if dec.err == nil && numBins > len(data) {
		dec.err = errors.Errorf("%d size bins in a %d byte record", numBins, len(data))
	}
	if dec.err == nil && numBins > 0 {
		st.Sizes = make([]SizeCount, numBins)
		for i := range st.Sizes {
			st.Sizes[i].Size = dec.count()
			st.Sizes[i].Count = dec.count()
		}
	}

	if dec.err != nil {
		return Record{}, errors.Wrap(wlmc.ErrBadRecord, dec.err.Error())
	}
	return rec, nil
}
