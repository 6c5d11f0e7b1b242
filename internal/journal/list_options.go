package journal

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// ListOptions 控制日志查询的过滤条件。
type ListOptions struct {
	Limit     int
	Sender    string
	Operation string
	Statuses  []Status
}

func (o *ListOptions) applyDefaults() {
	if o.Limit <= 0 {
		o.Limit = defaultListLimit
	}
	if o.Limit > maxListLimit {
		o.Limit = maxListLimit
	}
}

func (o ListOptions) matches(entry *Entry) bool {
	if o.Sender != "" && entry.Sender != o.Sender {
		return false
	}
	if o.Operation != "" && entry.Operation != o.Operation {
		return false
	}
	if len(o.Statuses) == 0 {
		return true
	}
	for _, status := range o.Statuses {
		if entry.Status == status {
			return true
		}
	}
	return false
}
