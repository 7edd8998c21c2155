package semaphore

type project struct {
	Metadata struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"metadata"`
}

// pipeline is one entry of the /pipelines listing.
type pipeline struct {
	ID     string `json:"ppl_id"`
	Result string `json:"result"`
}

// pipelineDetails is /pipelines/{id}?detailed=true.
type pipelineDetails struct {
	Pipeline struct {
		Result string `json:"result"`
	} `json:"pipeline"`
	Blocks []block `json:"blocks"`
}

type block struct {
	Result string `json:"result"`
	Jobs   []job  `json:"jobs"`
}

type job struct {
	Result string `json:"result"`
}
