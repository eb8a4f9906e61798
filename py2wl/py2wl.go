package py2wl

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/2x3systems/worldline/libwl"
	"github.com/2x3systems/worldline/libwl/diag"
	"github.com/2x3systems/worldline/libwl/sis"
	"github.com/2x3systems/worldline/libwl/snapshot"
	"github.com/2x3systems/worldline/wlmc"
	"github.com/go-python/gpython/py"
)

var (
	LIB_VERSION = "v1.2026.1"
)

var (
	pyLatticeType = py.NewType("Lattice", "sites and the contact edges between them")
	pyModelType   = py.NewType("Model", "infection/recovery model on a lattice")
	pyEngineType  = py.NewType("Engine", "a world-line and the random stream that sweeps it")
)

type pyLattice struct {
	*sis.Lattice
}

func (L pyLattice) Type() *py.Type {
	return pyLatticeType
}

func (L pyLattice) M__str__() (py.Object, error) {
	return py.String(L.String()), nil
}

func (L pyLattice) M__repr__() (py.Object, error) {
	return L.M__str__()
}

type pyModel struct {
	*sis.Model
}

func (m pyModel) Type() *py.Type {
	return pyModelType
}

type pyEngine struct {
	model  *sis.Model
	w      *libwl.WorldLine
	rng    *rand.Rand
	tally  wlmc.EventTally
	sweeps int64
}

func (e *pyEngine) Type() *py.Type {
	return pyEngineType
}

func wrapLattice(L *sis.Lattice, err error) (py.Object, error) {
	if err != nil {
		return nil, py.ExceptionNewf(py.ValueError, "%v", err)
	}
	return py.Object(pyLattice{L}), nil
}

// Arg 1 (int): number of sites
func py_Chain(module py.Object, args py.Tuple) (py.Object, error) {
	var n int32
	if err := py.LoadTuple(args, []interface{}{&n}); err != nil {
		return nil, err
	}
	return wrapLattice(sis.Chain(int(n)))
}

// Arg 1 (int): number of sites
func py_Ring(module py.Object, args py.Tuple) (py.Object, error) {
	var n int32
	if err := py.LoadTuple(args, []interface{}{&n}); err != nil {
		return nil, err
	}
	return wrapLattice(sis.Ring(int(n)))
}

// Arg 1 (int): width
// Arg 2 (int): height
// Arg 3 (bool, optional): wrap rows and columns
func py_Grid(module py.Object, args py.Tuple) (py.Object, error) {
	var w, h int32
	periodic := false
	if err := py.LoadTuple(args, []interface{}{&w, &h, &periodic}); err != nil {
		return nil, err
	}
	return wrapLattice(sis.Grid(int(w), int(h), periodic))
}

// Arg 1 (str): lattice expression, e.g. "1-2-3-4-1, 2-5"
func py_Lattice(module py.Object, args py.Tuple) (py.Object, error) {
	var expr string
	if err := py.LoadTuple(args, []interface{}{&expr}); err != nil {
		return nil, err
	}
	return wrapLattice(sis.ParseLattice(expr))
}

func getLattice(obj py.Object) (*sis.Lattice, error) {
	switch L := obj.(type) {
	case pyLattice:
		return L.Lattice, nil
	case py.String:
		return sis.ParseLattice(string(L))
	}
	return nil, py.ExceptionNewf(py.TypeError, "expected Lattice object (got %v)", obj.Type().Name)
}

// Arg 1 (Lattice or str): lattice
// Kwargs: beta, infection, recovery, field (float), periodic (bool)
func py_Model(module py.Object, args py.Tuple, kwargs py.StringDict) (py.Object, error) {
	if len(args) < 1 {
		return nil, py.ExceptionNewf(py.TypeError, "Model() requires a lattice")
	}
	L, err := getLattice(args[0])
	if err != nil {
		return nil, err
	}

	params := sis.DefaultParams()
	if err = py.LoadTuple(args[1:], []interface{}{&params.Beta, &params.Infection, &params.Recovery, &params.Field, &params.Periodic}); err != nil {
		return nil, err
	}
	py.LoadAttr(kwargs, "beta", &params.Beta)
	py.LoadAttr(kwargs, "infection", &params.Infection)
	py.LoadAttr(kwargs, "recovery", &params.Recovery)
	py.LoadAttr(kwargs, "field", &params.Field)
	py.LoadAttr(kwargs, "periodic", &params.Periodic)

	m, err := sis.NewModel(params, L)
	if err != nil {
		return nil, py.ExceptionNewf(py.ValueError, "%v", err)
	}
	return py.Object(pyModel{m}), nil
}

func py_Model_Fingerprint(self py.Object, args py.Tuple) (py.Object, error) {
	m := self.(pyModel)
	return py.String(m.Fingerprint()), nil
}

func py_Model_NumSites(self py.Object, args py.Tuple) (py.Object, error) {
	m := self.(pyModel)
	return py.Int(m.NumSites()), nil
}

func py_Model_NumBonds(self py.Object, args py.Tuple) (py.Object, error) {
	m := self.(pyModel)
	return py.Int(m.NumBonds()), nil
}

// Arg 1 (Model): model
// Arg 2 (int): seed
// Arg 3 (str, optional): initial states, one S or I per site (all susceptible if omitted)
func py_NewEngine(module py.Object, args py.Tuple) (py.Object, error) {
	if len(args) < 1 {
		return nil, py.ExceptionNewf(py.TypeError, "NewEngine() requires a Model")
	}
	m, ok := args[0].(pyModel)
	if !ok {
		return nil, py.ExceptionNewf(py.TypeError, "expected Model object (got %v)", args[0].Type().Name)
	}

	var (
		seed    int32
		initStr string
	)
	if err := py.LoadTuple(args[1:], []interface{}{&seed, &initStr}); err != nil {
		return nil, err
	}

	initial := make([]wlmc.State, m.NumSites())
	if initStr != "" {
		var err error
		if initial, err = snapshot.ParseStates(initStr); err != nil {
			return nil, py.ExceptionNewf(py.ValueError, "%v", err)
		}
	}

	w, err := libwl.NewWorldLine(m.Model, initial)
	if err != nil {
		return nil, py.ExceptionNewf(py.ValueError, "%v", err)
	}
	return py.Object(&pyEngine{
		model: m.Model,
		w:     w,
		rng:   rand.New(rand.NewSource(int64(seed))),
	}), nil
}

// Arg 1 (int, optional): number of sweeps (default 1)
func py_Engine_Sweep(self py.Object, args py.Tuple) (py.Object, error) {
	e := self.(*pyEngine)
	n := int32(1)
	if err := py.LoadTuple(args, []interface{}{&n}); err != nil {
		return nil, err
	}
	for i := int32(0); i < n; i++ {
		if err := e.w.Sweep(e.rng, &e.tally, nil); err != nil {
			return nil, py.ExceptionNewf(py.RuntimeError, "sweep %d: %v", e.sweeps, err)
		}
		e.sweeps++
	}
	return py.None, nil
}

func py_Engine_Sweeps(self py.Object, args py.Tuple) (py.Object, error) {
	e := self.(*pyEngine)
	return py.Int(e.sweeps), nil
}

// Returns (infections, recoveries) tallied by removal so far
func py_Engine_Counts(self py.Object, args py.Tuple) (py.Object, error) {
	e := self.(*pyEngine)
	return py.Tuple{py.Int(e.tally.Infections), py.Int(e.tally.Recoveries)}, nil
}

func py_Engine_NumVertices(self py.Object, args py.Tuple) (py.Object, error) {
	e := self.(*pyEngine)
	return py.Int(e.w.NumVertices()), nil
}

// Returns the initial boundary states as a string of S and I
func py_Engine_States(self py.Object, args py.Tuple) (py.Object, error) {
	e := self.(*pyEngine)
	return py.String(snapshot.FormatStates(e.w.InitialStates())), nil
}

func py_Engine_LogWeight(self py.Object, args py.Tuple) (py.Object, error) {
	e := self.(*pyEngine)
	return py.Float(libwl.LogWeight(e.w)), nil
}

// Builds clusters for the current world-line and returns the statistic summary line
func py_Engine_Statistic(self py.Object, args py.Tuple) (py.Object, error) {
	e := self.(*pyEngine)
	e.w.BuildClusters()
	st, err := diag.Compute(e.w)
	if err != nil {
		return nil, py.ExceptionNewf(py.RuntimeError, "%v", err)
	}
	return py.String(st.Summary()), nil
}

// Arg 1 (str, optional): output pathname; a ".json" suffix selects JSON.  Without a pathname the text rendering is returned.
func py_Engine_Snapshot(self py.Object, args py.Tuple) (py.Object, error) {
	e := self.(*pyEngine)
	var pathname string
	if err := py.LoadTuple(args, []interface{}{&pathname}); err != nil {
		return nil, err
	}

	if len(pathname) == 0 {
		var b strings.Builder
		if err := snapshot.Show(&b, e.w, snapshot.DefaultPrintOpts); err != nil {
			return nil, py.ExceptionNewf(py.RuntimeError, "%v", err)
		}
		return py.String(b.String()), nil
	}

	os.MkdirAll(filepath.Dir(pathname), 0700)
	file, err := os.OpenFile(pathname, os.O_TRUNC|os.O_WRONLY|os.O_CREATE, 0600)
	if err != nil {
		return nil, py.ExceptionNewf(py.FileNotFoundError, "%v", err)
	}
	defer file.Close()

	if strings.HasSuffix(pathname, ".json") {
		err = snapshot.WriteJSON(file, e.w)
	} else {
		err = snapshot.Show(file, e.w, snapshot.DefaultPrintOpts)
	}
	if err != nil {
		return nil, py.ExceptionNewf(py.OSError, "%v", err)
	}
	return py.None, nil
}

func init() {

	/////////////////////////////////
	// Lattice
	{
		pyLatticeType.Dict["NumSites"] = py.MustNewMethod("NumSites", func(self py.Object, args py.Tuple) (py.Object, error) {
			return py.Int(self.(pyLattice).NumSites), nil
		}, 0, "")
		pyLatticeType.Dict["NumEdges"] = py.MustNewMethod("NumEdges", func(self py.Object, args py.Tuple) (py.Object, error) {
			return py.Int(len(self.(pyLattice).Edges)), nil
		}, 0, "")
	}

	/////////////////////////////////
	// Model
	{
		pyModelType.Dict["Fingerprint"] = py.MustNewMethod("Fingerprint", py_Model_Fingerprint, 0, "hex SHA3-256 of the parameters and lattice")
		pyModelType.Dict["NumSites"] = py.MustNewMethod("NumSites", py_Model_NumSites, 0, "")
		pyModelType.Dict["NumBonds"] = py.MustNewMethod("NumBonds", py_Model_NumBonds, 0, "")
	}

	/////////////////////////////////
	// Engine
	{
		pyEngineType.Dict["Sweep"] = py.MustNewMethod("Sweep", py_Engine_Sweep, 0, "runs the given number of sweeps")
		pyEngineType.Dict["Sweeps"] = py.MustNewMethod("Sweeps", py_Engine_Sweeps, 0, "number of sweeps run so far")
		pyEngineType.Dict["Counts"] = py.MustNewMethod("Counts", py_Engine_Counts, 0, "(infections, recoveries) tallied so far")
		pyEngineType.Dict["NumVertices"] = py.MustNewMethod("NumVertices", py_Engine_NumVertices, 0, "")
		pyEngineType.Dict["States"] = py.MustNewMethod("States", py_Engine_States, 0, "initial boundary states")
		pyEngineType.Dict["LogWeight"] = py.MustNewMethod("LogWeight", py_Engine_LogWeight, 0, "")
		pyEngineType.Dict["Statistic"] = py.MustNewMethod("Statistic", py_Engine_Statistic, 0, "cluster statistic summary")
		pyEngineType.Dict["Snapshot"] = py.MustNewMethod("Snapshot", py_Engine_Snapshot, 0, "renders the current configuration")
	}

	{
		methods := []*py.Method{
			py.MustNewMethod("Chain", py_Chain, 0, ""),
			py.MustNewMethod("Ring", py_Ring, 0, ""),
			py.MustNewMethod("Grid", py_Grid, 0, ""),
			py.MustNewMethod("Lattice", py_Lattice, 0, ""),
			py.MustNewMethod("Model", py_Model, 0, ""),
			py.MustNewMethod("NewEngine", py_NewEngine, 0, ""),
		}

		globals := py.StringDict{
			"LIB_VERSION":  py.String(LIB_VERSION),
			"MAX_VERTICES": py.Int(wlmc.MaxVertices),
		}

		py.RegisterModule(&py.ModuleImpl{
			Info: py.ModuleInfo{
				Name: "_wlmc",
				Doc:  "world-line cluster Monte Carlo gpython module",
			},
			Methods: methods,
			Globals: globals,
		})
	}
}
