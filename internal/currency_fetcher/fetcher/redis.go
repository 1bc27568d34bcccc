package fetcher

import "context"

type Notifier interface {
	PublishUpd(ctx context.Context, payload string) error
}

type Listener interface {
	ListenUdp(ctx context.Context) (string, error)
}
