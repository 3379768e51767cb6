package activitytype

type CreateActivityTypeRequest struct {
	Name        string  `json:"name"`
	IconURL     *string `json:"iconUrl,omitempty"`
	MetricKind  string  `json:"metricKind,omitempty"`
	MetricLabel *string `json:"metricLabel,omitempty"`
}

type UpdateActivityTypeRequest struct {
	Name        *string `json:"name,omitempty"`
	IconURL     *string `json:"iconUrl,omitempty"`
	MetricLabel *string `json:"metricLabel,omitempty"`
}
