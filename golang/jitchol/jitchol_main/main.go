package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/tarstars/jitchol/golang/jitchol/chol"
	"gonum.org/v1/gonum/mat"
)

func decodeConfig(srcConfig string, out interface{}) {
	file, err := os.Open(srcConfig)
	chol.HandleError(err)
	defer func() { chol.HandleError(file.Close()) }()

	decoder := json.NewDecoder(file)
	chol.HandleError(decoder.Decode(out))
}

//PolicyConfig overrides the default jitter policy. Zero fields keep the defaults.
type PolicyConfig struct {
	MaxTries      *int    `json:"max_tries"`
	InitialJitter float64 `json:"initial_jitter"`
	JitterGrowth  float64 `json:"jitter_growth"`
}

func (p PolicyConfig) factorizer() *chol.Factorizer {
	policy := chol.DefaultJitterPolicy
	if p.MaxTries != nil {
		policy.MaxTries = *p.MaxTries
	}
	if p.InitialJitter != 0 {
		policy.Initial = p.InitialJitter
	}
	if p.JitterGrowth != 0 {
		policy.Growth = p.JitterGrowth
	}
	chol.HandleError(policy.Validate())
	return chol.NewFactorizer(policy, chol.LogSink{})
}

func readMatrix(fileName string) *mat.Dense {
	log.Print("\ttry to load <", fileName, ">")
	m, err := chol.ReadNpy(fileName)
	chol.HandleError(err)
	return m
}

type CholeskyConfig struct {
	FileNameMatrix string       `json:"filename_matrix"`
	FileNameFactor string       `json:"filename_factor"`
	Policy         PolicyConfig `json:"policy"`
}

func factorize(srcConfig string) {
	var choleskyConfig CholeskyConfig
	decodeConfig(srcConfig, &choleskyConfig)

	factor, err := choleskyConfig.Policy.factorizer().Cholesky(readMatrix(choleskyConfig.FileNameMatrix))
	chol.HandleError(err)
	log.Printf("factor of dim %d, jitter %g, log det %g\n", factor.Dim(), factor.Jitter(), factor.LogDet())

	chol.HandleError(chol.WriteNpy(choleskyConfig.FileNameFactor, factor))
}

type SolveConfig struct {
	FileNameMatrix   string       `json:"filename_matrix"`
	FileNameRhs      string       `json:"filename_rhs"`
	FileNameSolution string       `json:"filename_solution"`
	Policy           PolicyConfig `json:"policy"`
}

func solve(srcConfig string) {
	var solveConfig SolveConfig
	decodeConfig(srcConfig, &solveConfig)

	factor, err := solveConfig.Policy.factorizer().Cholesky(readMatrix(solveConfig.FileNameMatrix))
	chol.HandleError(err)

	solution, err := chol.SolveCholesky(factor, readMatrix(solveConfig.FileNameRhs))
	chol.HandleError(err)
	chol.HandleError(chol.WriteNpy(solveConfig.FileNameSolution, solution))
}

type InverseConfig struct {
	FileNameMatrix  string       `json:"filename_matrix"`
	FileNameInverse string       `json:"filename_inverse"`
	Policy          PolicyConfig `json:"policy"`
}

func inverse(srcConfig string) {
	var inverseConfig InverseConfig
	decodeConfig(srcConfig, &inverseConfig)

	factor, err := inverseConfig.Policy.factorizer().Cholesky(readMatrix(inverseConfig.FileNameMatrix))
	chol.HandleError(err)

	inv, err := chol.CholeskyInverse(factor)
	chol.HandleError(err)
	chol.HandleError(chol.WriteNpy(inverseConfig.FileNameInverse, inv))
}

//UpdateConfig describes a factorization grown block by block: the leading Split rows and
//columns are factored first and every following block of Step rows is appended with an update.
type UpdateConfig struct {
	FileNameMatrix   string       `json:"filename_matrix"`
	FileNameRhs      string       `json:"filename_rhs"`
	Split            int          `json:"split"`
	Step             int          `json:"step"`
	FileNameFactor   string       `json:"filename_factor"`
	FileNameSolution string       `json:"filename_solution"`
	Policy           PolicyConfig `json:"policy"`
}

func update(srcConfig string) {
	var updateConfig UpdateConfig
	decodeConfig(srcConfig, &updateConfig)

	matrix := readMatrix(updateConfig.FileNameMatrix)
	n := chol.Height(matrix)
	if updateConfig.Split <= 0 || updateConfig.Split > n {
		log.Panicf("split %d is outside of [1, %d]", updateConfig.Split, n)
	}
	step := updateConfig.Step
	if step <= 0 {
		step = n - updateConfig.Split
	}

	var rhs *mat.Dense
	if updateConfig.FileNameRhs != "" {
		rhs = readMatrix(updateConfig.FileNameRhs)
	} else {
		rhs = mat.NewDense(n, 1, nil)
	}
	rhsH, k := rhs.Dims()
	if rhsH != n {
		log.Panicf("the rhs height %d is not equal to the matrix height %d", rhsH, n)
	}

	system, err := chol.NewGrowingSystem(
		updateConfig.Policy.factorizer(),
		matrix.Slice(0, updateConfig.Split, 0, updateConfig.Split),
		rhs.Slice(0, updateConfig.Split, 0, k),
	)
	chol.HandleError(err)

	for start := updateConfig.Split; start < n; start += step {
		end := start + step
		if end > n {
			end = n
		}
		system, err = system.Extend(
			matrix.Slice(start, end, 0, start),
			matrix.Slice(start, end, start, end),
			rhs.Slice(start, end, 0, k),
		)
		chol.HandleError(err)
		log.Printf("grown to dim %d\n", system.Dim())
	}

	chol.HandleError(chol.WriteNpy(updateConfig.FileNameFactor, system.Factor))
	if updateConfig.FileNameSolution != "" {
		solution, err := system.Solution()
		chol.HandleError(err)
		chol.HandleError(chol.WriteNpy(updateConfig.FileNameSolution, solution))
	}
}

type TraceConfig struct {
	FileNameMatrix string       `json:"filename_matrix"`
	FigureType     string       `json:"figure_type"`
	FileNameFigure string       `json:"filename_figure"`
	Policy         PolicyConfig `json:"policy"`
}

func trace(srcConfig string) {
	var traceConfig TraceConfig
	decodeConfig(srcConfig, &traceConfig)

	var attempts []chol.Attempt
	factor, err := traceConfig.Policy.factorizer().Cholesky(readMatrix(traceConfig.FileNameMatrix))
	if err != nil {
		attempts = chol.TraceOf(err)
		if attempts == nil {
			log.Panic(err)
		}
		log.Print(err)
	} else {
		attempts = factor.Attempts()
	}

	dst, err := os.Create(traceConfig.FileNameFigure)
	chol.HandleError(err)
	defer func() { chol.HandleError(dst.Close()) }()
	chol.HandleError(chol.RenderTrace(attempts, traceConfig.FigureType, dst))
}

func main() {
	runMode := flag.String("mode", "cholesky", "you can select either 'cholesky', 'solve', 'inverse', 'update' or 'trace' modes")
	config := flag.String("config", "jitchol_config.json", "a config file for the run of the program")
	memprofile := flag.String("memprofile", "", "write memory profile to `file`")

	flag.Parse()

	modes := map[string]func(string){
		"cholesky": factorize,
		"solve":    solve,
		"inverse":  inverse,
		"update":   update,
		"trace":    trace,
	}
	run, ok := modes[*runMode]
	if !ok {
		log.Fatalf("unknown mode %q", *runMode)
	}
	run(*config)

	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		chol.HandleError(err)
		defer func() { chol.HandleError(f.Close()) }()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal("could not write memory profile: ", err)
		}
	}
}
