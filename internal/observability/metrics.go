package observability

const (
	MUsecaseRequests     MetricKey = "usecase_requests_total"
	MUsecaseDuration     MetricKey = "usecase_duration_seconds"
	MHTTPRequests        MetricKey = "http_requests_total"
	MHTTPRequestDuration MetricKey = "http_request_duration_seconds"
	MExternalRequests    MetricKey = "external_requests_total"
	MExternalRequestDur  MetricKey = "external_request_duration_seconds"
	MWebhookEvents       MetricKey = "webhook_events_total"
	MStockDecrements     MetricKey = "stock_decrements_total"
	MMailDeliveries      MetricKey = "mail_deliveries_total"
)
