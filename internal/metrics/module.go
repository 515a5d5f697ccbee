package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Module provides a *Metrics registered against the default Prometheus
// registerer.
var Module fx.Option = fx.Provide(
	func() *Metrics { return New(prometheus.DefaultRegisterer) },
)
