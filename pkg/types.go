package dbrouter

import (
	"fmt"
	"time"

	"github.com/AbdelilahOu/DBRouter/internal/client"
	"github.com/AbdelilahOu/DBRouter/internal/state"
)

// DefaultQueryLimit caps query results when the caller does not ask for a limit.
const DefaultQueryLimit = 50

// ConnectRequest opens a session. Either Target names a configured connection,
// or DBType and the address fields describe the database directly.
type ConnectRequest struct {
	Target         string `json:"target,omitempty" jsonschema:"name of a configured connection to use instead of dbType/host/port/database"`
	DBType         string `json:"dbType,omitempty" jsonschema:"database type: postgres, oracle, mysql, sqlserver or sqlite"`
	Host           string `json:"host,omitempty" jsonschema:"database host"`
	Port           int    `json:"port,omitempty" jsonschema:"database port (1-65535)"`
	Database       string `json:"database,omitempty" jsonschema:"database name, Oracle SID or service name, or SQLite file path"`
	UseServiceName bool   `json:"useServiceName,omitempty" jsonschema:"Oracle only: treat database as a service name instead of a SID"`
	Username       string `json:"username,omitempty" jsonschema:"login user"`
	Password       string `json:"password,omitempty" jsonschema:"login password"`
}

// ClientTarget converts the request into a factory target.
func (r ConnectRequest) ClientTarget() (client.Target, error) {
	if r.Target != "" {
		return client.Target{Name: r.Target, Username: r.Username, Password: r.Password}, nil
	}
	if r.DBType == "" {
		return client.Target{}, fmt.Errorf("%w: dbType or target is required", client.ErrInvalidTarget)
	}
	kind, err := client.ParseKind(r.DBType)
	if err != nil {
		return client.Target{}, err
	}
	return client.Target{
		Kind:           kind,
		Host:           r.Host,
		Port:           r.Port,
		Database:       r.Database,
		UseServiceName: r.UseServiceName,
		Username:       r.Username,
		Password:       r.Password,
	}, nil
}

// FormatTime renders a timestamp the way every response carries it.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

type ConnectResponse struct {
	ConnectionID string `json:"connectionId" jsonschema:"session id to pass to later calls"`
	ExpiresAt    string `json:"expiresAt" jsonschema:"RFC 3339 time the session expires if left idle"`
}

type CloseRequest struct {
	ConnectionID string `json:"connectionId" jsonschema:"session id returned by connect"`
}

type CloseResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type CloseAllResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	ClosedCount int    `json:"closedCount"`
}

// SessionInfo times are RFC 3339 strings.
type SessionInfo struct {
	ConnectionID string `json:"connectionId"`
	Label        string `json:"label"`
	DBType       string `json:"dbType"`
	CreatedAt    string `json:"createdAt"`
	LastAccessAt string `json:"lastAccessAt"`
	ExpiresAt    string `json:"expiresAt"`
}

type ListSessionsResponse struct {
	Connections []SessionInfo `json:"connections"`
	Count       int           `json:"count"`
}

func NewListSessionsResponse(infos []state.SessionInfo) ListSessionsResponse {
	sessions := make([]SessionInfo, 0, len(infos))
	for _, info := range infos {
		sessions = append(sessions, SessionInfo{
			ConnectionID: info.ID,
			Label:        info.Label,
			DBType:       string(info.Kind),
			CreatedAt:    FormatTime(info.CreatedAt),
			LastAccessAt: FormatTime(info.LastAccessAt),
			ExpiresAt:    FormatTime(info.ExpiresAt),
		})
	}
	return ListSessionsResponse{Connections: sessions, Count: len(sessions)}
}

// QueryRequest runs a read-only query against a session, or against the
// default connection when ConnectionID is empty.
type QueryRequest struct {
	ConnectionID string `json:"connectionId,omitempty" jsonschema:"session id; empty uses the default connection"`
	Query        string `json:"query" jsonschema:"SELECT statement to run"`
	Limit        int    `json:"limit,omitempty" jsonschema:"maximum rows to return (default 50)"`
}

type QueryResponse struct {
	Rows      []map[string]interface{} `json:"rows"`
	Count     int                      `json:"count"`
	Truncated bool                     `json:"truncated"`
}
