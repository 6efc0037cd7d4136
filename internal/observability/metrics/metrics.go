package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"service", "method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)

	MessagesSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_sent_total",
			Help: "Total number of send operations.",
		},
		[]string{"service", "result"},
	)

	ConversationsFetchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversations_fetched_total",
			Help: "Total number of conversation fetches.",
		},
		[]string{"service", "result"},
	)

	UnreadLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unread_lookups_total",
			Help: "Total number of unread-count lookups.",
		},
		[]string{"service", "scope"},
	)

	ContactListFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_list_fetches_total",
			Help: "Total number of contact list fetches.",
		},
		[]string{"service", "result"},
	)

	AuthenticationAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authentication_attempts_total",
			Help: "Total number of bearer-token validations.",
		},
		[]string{"service", "result"},
	)
)

func MustRegister(serviceName string) {
	HTTPRequestsTotal = HTTPRequestsTotal.MustCurryWith(prometheus.Labels{"service": serviceName})
	HTTPRequestDurationSeconds = HTTPRequestDurationSeconds.MustCurryWith(prometheus.Labels{"service": serviceName}).(*prometheus.HistogramVec)
	MessagesSentTotal = MessagesSentTotal.MustCurryWith(prometheus.Labels{"service": serviceName})
	ConversationsFetchedTotal = ConversationsFetchedTotal.MustCurryWith(prometheus.Labels{"service": serviceName})
	UnreadLookupsTotal = UnreadLookupsTotal.MustCurryWith(prometheus.Labels{"service": serviceName})
	ContactListFetchesTotal = ContactListFetchesTotal.MustCurryWith(prometheus.Labels{"service": serviceName})
	AuthenticationAttemptsTotal = AuthenticationAttemptsTotal.MustCurryWith(prometheus.Labels{"service": serviceName})

	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		MessagesSentTotal,
		ConversationsFetchedTotal,
		UnreadLookupsTotal,
		ContactListFetchesTotal,
		AuthenticationAttemptsTotal,
	)
}
