package flow

// Transformer consumes the converged facts of an analysis.
type Transformer[E comparable, G any, A any, R any] interface {
	Transform(g G, res *Result[E, A]) (R, error)
}

// IntegratedAnalysis pairs an analysis with the transformation driven by its
// result.
type IntegratedAnalysis[N, E comparable, G Graph[N, E], A any, R any] struct {
	Analysis    Analysis[N, E, G, A]
	Transformer Transformer[E, G, A, R]
}

// Run solves the analysis on g and applies the transformer to the result.
// The transformer is not run if the analysis fails to converge.
func Run[N, E comparable, G Graph[N, E], A any, R any](g G, ia IntegratedAnalysis[N, E, G, A, R], opts ...Option[N]) (R, error) {
	res, err := Solve[N, E, G, A](g, ia.Analysis, opts...)
	if err != nil {
		var zero R
		return zero, err
	}
	return ia.Transformer.Transform(g, res)
}
