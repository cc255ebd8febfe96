package task

// Remote issue states as GitHub reports them.
const (
	RemoteOpen   = "open"
	RemoteClosed = "closed"
)

// StatusFromRemote maps a remote issue's state and assignment onto a board
// status: closed issues land in "done", open issues assigned to the
// authenticated user in "todo", everything else in "backlog".
func StatusFromRemote(state, assignee, viewer string) Status {
	if state == RemoteClosed {
		return StatusDone
	}
	if assignee != "" && assignee == viewer {
		return StatusTodo
	}
	return StatusBacklog
}

// RemoteState is the inverse mapping used when pushing: "done" closes the
// issue, every other status keeps it open.
func RemoteState(s Status) string {
	if s.Terminal() {
		return RemoteClosed
	}
	return RemoteOpen
}
