package clients

import "errors"

var (
	ErrNotFound     = errors.New("client not found")
	ErrInvalidScope = errors.New("invalid scope")
)

type Repo interface {
	Upsert(clientData *Client) error
	Delete(clientID string) error
	Get(clientID string) (*Client, error)
	List(offset, limit int) ([]*Client, error)
}
