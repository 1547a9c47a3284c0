package app

// Operation handle of work a FeedSession started. The local part of the work
// is already applied when the handle is returned; Wait blocks until the
// network part has settled.
type Operation struct {
	// Key record the operation is about, the local id for a send
	Key string

	done chan struct{}
	err  error
}

func newOperation(key string) *Operation {
	return &Operation{Key: key, done: make(chan struct{})}
}

func completedOperation(key string, err error) *Operation {
	op := newOperation(key)
	op.finish(err)
	return op
}

func (o *Operation) finish(err error) {
	o.err = err
	close(o.done)
}

// Done closed once settled
func (o *Operation) Done() <-chan struct{} {
	return o.done
}

// Wait blocks until settled and returns the outcome
func (o *Operation) Wait() error {
	<-o.done
	return o.err
}
