package graph

// Stats summarizes a document for listing views.
type Stats struct {
	NodeCount       int `json:"node_count"`
	EdgeCount       int `json:"edge_count"`
	ComplexityScore int `json:"complexity_score"`
}

// Stats computes node and edge counts and the cyclomatic number E - N + 2 of the graph.
// An empty document scores 0 and the score never drops below 1 otherwise.
func (d Document) Stats() Stats {
	stats := Stats{
		NodeCount: len(d.Nodes),
		EdgeCount: len(d.Edges),
	}

	if stats.NodeCount == 0 {
		return stats
	}

	stats.ComplexityScore = max(stats.EdgeCount-stats.NodeCount+2, 1)

	return stats
}
