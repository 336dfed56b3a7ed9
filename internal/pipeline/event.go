package pipeline

import "path/filepath"

// EventKind：事件类型
type EventKind string

const (
	EventProgress      EventKind = "progress"
	EventFileSucceeded EventKind = "file_succeeded"
	EventFileFailed    EventKind = "file_failed"
	EventFinished      EventKind = "finished"
)

// Event：流水线向调用方发出的唯一通知形式
// Progress 仅携带 Percent；文件事件携带 File 与 Message（失败时另有 Reason）；Finished 总是最后一个
type Event struct {
	Kind      EventKind `json:"kind"`
	Index     int       `json:"index"`
	File      string    `json:"file,omitempty"`
	Percent   int       `json:"percent"`
	Message   string    `json:"message,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Output    string    `json:"output,omitempty"`
	Rows      int       `json:"rows,omitempty"`
	Failed    int       `json:"failed_rows,omitempty"`
	Cancelled bool      `json:"cancelled,omitempty"`
}

// Observer：事件旁路（指标、历史记录、任务状态），在发给调用方之前同步调用
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc：函数适配
type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }

func progressEvent(i, total int) Event {
	return Event{Kind: EventProgress, Index: i, Percent: (i + 1) * 100 / total}
}

func succeededEvent(i int, path string, res FileResult) Event {
	name := filepath.Base(path)
	return Event{
		Kind:    EventFileSucceeded,
		Index:   i,
		File:    name,
		Message: "成功转换: " + name,
		Output:  res.Output,
		Rows:    res.Rows,
		Failed:  len(res.RowErrors),
	}
}

func failedEvent(i int, path string, err error) Event {
	name := filepath.Base(path)
	return Event{
		Kind:    EventFileFailed,
		Index:   i,
		File:    name,
		Message: "处理文件 " + name + " 时出错: " + err.Error(),
		Reason:  err.Error(),
	}
}
