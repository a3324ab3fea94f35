package config

type WorkerKeyStruct struct {
	ComputeResultsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	ComputeResultsQueue: "compute_results_queue",
}
