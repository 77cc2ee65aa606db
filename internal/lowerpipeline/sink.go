package lowerpipeline

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

// OnEvent sends evt, blocking until the receiver takes it.
func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

func emit(sink ProgressSink, evt Event) {
	if sink != nil {
		sink.OnEvent(evt)
	}
}

func emitFunctions(sink ProgressSink, funcs []string, stage Stage, status Status, err error) {
	if sink == nil {
		return
	}
	for _, fn := range funcs {
		sink.OnEvent(Event{Function: fn, Stage: stage, Status: status, Err: err})
	}
}
