package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	cloudtasks "cloud.google.com/go/cloudtasks/apiv2"
	"cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"
)

// processTaskPath is the internal endpoint Cloud Tasks invokes to run the
// order pipeline.
const processTaskPath = "/api/orders/process-task"

// OrderTaskMessage is the JSON body delivered to the process-task endpoint.
type OrderTaskMessage struct {
	OrderID int64 `json:"order_id"`
}

// Enqueuer schedules background order processing through Cloud Tasks. The
// created task calls back into this service with an OIDC token minted for the
// invoker service account.
type Enqueuer struct {
	client       *cloudtasks.Client
	queuePath    string
	serviceURL   string
	invokerEmail string
	marshal      func(any) ([]byte, error)
}

// Config binds the enqueuer to one queue and one callback target.
type Config struct {
	ProjectID    string
	Location     string
	Queue        string
	ServiceURL   string
	InvokerEmail string
}

// NewEnqueuer constructs a Cloud Tasks backed enqueuer.
func NewEnqueuer(ctx context.Context, cfg Config) (*Enqueuer, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" || strings.TrimSpace(cfg.Location) == "" || strings.TrimSpace(cfg.Queue) == "" {
		return nil, errors.New("tasks: project, location, and queue are required")
	}
	serviceURL := strings.TrimRight(strings.TrimSpace(cfg.ServiceURL), "/")
	if serviceURL == "" {
		return nil, errors.New("tasks: service url is required")
	}

	client, err := cloudtasks.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("tasks: new client: %w", err)
	}
	return &Enqueuer{
		client:       client,
		queuePath:    fmt.Sprintf("projects/%s/locations/%s/queues/%s", cfg.ProjectID, cfg.Location, cfg.Queue),
		serviceURL:   serviceURL,
		invokerEmail: strings.TrimSpace(cfg.InvokerEmail),
		marshal:      json.Marshal,
	}, nil
}

// Close releases the underlying client.
func (e *Enqueuer) Close() error {
	if e == nil || e.client == nil {
		return nil
	}
	return e.client.Close()
}

// EnqueueOrder schedules one background processing task for the order and
// returns the created task name.
func (e *Enqueuer) EnqueueOrder(ctx context.Context, orderID int64) (string, error) {
	if e == nil || e.client == nil {
		return "", errors.New("tasks: not initialised")
	}
	body, err := e.marshal(OrderTaskMessage{OrderID: orderID})
	if err != nil {
		return "", fmt.Errorf("tasks: marshal order %d: %w", orderID, err)
	}

	httpReq := &cloudtaskspb.HttpRequest{
		HttpMethod: cloudtaskspb.HttpMethod_POST,
		Url:        e.serviceURL + processTaskPath,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
	if e.invokerEmail != "" {
		httpReq.AuthorizationHeader = &cloudtaskspb.HttpRequest_OidcToken{
			OidcToken: &cloudtaskspb.OidcToken{
				ServiceAccountEmail: e.invokerEmail,
				Audience:            e.serviceURL,
			},
		}
	}

	task, err := e.client.CreateTask(ctx, &cloudtaskspb.CreateTaskRequest{
		Parent: e.queuePath,
		Task: &cloudtaskspb.Task{
			MessageType: &cloudtaskspb.Task_HttpRequest{HttpRequest: httpReq},
		},
	})
	if err != nil {
		return "", fmt.Errorf("tasks: create task for order %d: %w", orderID, err)
	}
	return task.GetName(), nil
}
