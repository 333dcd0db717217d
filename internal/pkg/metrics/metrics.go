package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTPRequestsTotal 按方法、路由和状态码统计 HTTP 请求数。
	HTTPRequestsTotal *prometheus.CounterVec
	// AuthRejectedTotal 被认证中间件拒绝的请求数。
	AuthRejectedTotal prometheus.Counter
	// LoginFailureTotal 凭证错误导致的登录失败数。
	LoginFailureTotal prometheus.Counter
	// TaskCreatedTotal 创建成功的任务数。
	TaskCreatedTotal prometheus.Counter
	// TaskDuplicatePreventedTotal 因重复提交被拦截的创建请求数。
	TaskDuplicatePreventedTotal prometheus.Counter
	// RateLimitRejectedTotal 被限流拒绝的请求数。
	RateLimitRejectedTotal prometheus.Counter
)

var initOnce sync.Once

// InitMetrics 注册所有 Prometheus 指标，可安全地重复调用。
func InitMetrics() {
	initOnce.Do(func() {
		HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskhub_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "path", "status"})

		AuthRejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskhub_auth_rejected_total",
			Help: "Requests rejected by the auth middleware.",
		})

		LoginFailureTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskhub_login_failure_total",
			Help: "Login attempts rejected for bad credentials.",
		})

		TaskCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskhub_task_created_total",
			Help: "Tasks created successfully.",
		})

		TaskDuplicatePreventedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskhub_task_duplicate_prevented_total",
			Help: "Task creations suppressed as duplicate submissions.",
		})

		RateLimitRejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskhub_ratelimit_rejected_total",
			Help: "Requests rejected by the rate limiter.",
		})

		prometheus.MustRegister(
			HTTPRequestsTotal,
			AuthRejectedTotal,
			LoginFailureTotal,
			TaskCreatedTotal,
			TaskDuplicatePreventedTotal,
			RateLimitRejectedTotal,
		)
	})
}
