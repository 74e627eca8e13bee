package ratings

import "animehub/internal/sync"

type recorder struct{ events []sync.Event }

func (r *recorder) Publish(ev sync.Event) { r.events = append(r.events, ev) }
