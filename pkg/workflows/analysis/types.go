package analysis

const (
	// AnalysisSignal delivers an AnalysisJob to the queue workflow.
	AnalysisSignal = "analysis_job"
	// LastRunQuery returns the run directory of the most recent job.
	LastRunQuery = "last_run"

	// LogFileName is written inside every run directory by RunAnalyzer.
	LogFileName = "analyzer.log"
)

// AnalysisJob describes one analyzer run and where its output goes.
type AnalysisJob struct {
	Base   string
	Prefix string
	Tag    string
	Unique bool

	// SourceRepoURL, when set, is cloned into the run directory first.
	SourceRepoURL string
	SourceRef     string

	Analyzer   string
	Args       []string
	OutdirFlag string
	Env        map[string]string

	// Keep > 0 prunes older runs of the same prefix after a successful run.
	Keep int
}

// RunInput is the RunAnalyzer activity input.
type RunInput struct {
	RunDir     string
	Analyzer   string
	Args       []string
	OutdirFlag string
	Env        map[string]string
}

// AnalyzerDetails contains the results of an analyzer execution
type AnalyzerDetails struct {
	ExitCode  int
	LastLines string
	LogFile   string
}
