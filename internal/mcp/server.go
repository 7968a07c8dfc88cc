// Package mcp provides an MCP (Model Context Protocol) server that exposes
// dex functionality as MCP tools for AI coding assistants.
package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/dexhq/dex/internal/core"
	"github.com/dexhq/dex/pkg/models"
	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps dex services and exposes them as MCP tools.
type Server struct {
	server     *gomcp.Server
	taskMgr    core.TaskManager
	archiveCfg models.AutoArchiveConfig
}

// NewServer creates a new MCP server with the given dex service dependencies.
func NewServer(taskMgr core.TaskManager, archiveCfg models.AutoArchiveConfig, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		taskMgr:    taskMgr,
		archiveCfg: archiveCfg,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "dex", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server on the given transport, blocking until the client
// disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type getTaskInput struct {
	TaskID string `json:"task_id" jsonschema:"required,the unique task identifier (e.g. 42)"`
}

type taskOutput struct {
	ID          string   `json:"id"`
	ParentID    string   `json:"parent_id,omitempty"`
	Description string   `json:"description"`
	Context     string   `json:"context,omitempty"`
	Priority    int      `json:"priority"`
	Completed   bool     `json:"completed"`
	CompletedAt string   `json:"completed_at,omitempty"`
	Result      string   `json:"result,omitempty"`
	Created     string   `json:"created"`
	Updated     string   `json:"updated"`
	BlockedBy   []string `json:"blocked_by,omitempty"`
	Blocks      []string `json:"blocks,omitempty"`
}

type listTasksInput struct {
	Completed *bool  `json:"completed,omitempty" jsonschema:"filter by completion state (true for completed, false for pending)"`
	ParentID  string `json:"parent_id,omitempty" jsonschema:"list only direct children of this task"`
}

type listTasksOutput struct {
	Tasks []taskOutput `json:"tasks"`
	Count int          `json:"count"`
}

type createTaskInput struct {
	Description string `json:"description" jsonschema:"required,short description of the task"`
	Context     string `json:"context,omitempty" jsonschema:"longer free-form context"`
	ParentID    string `json:"parent_id,omitempty" jsonschema:"id of the parent task, empty for a root task"`
	Priority    int    `json:"priority,omitempty" jsonschema:"priority, lower is more urgent"`
}

type completeTaskInput struct {
	TaskID string `json:"task_id" jsonschema:"required,the unique task identifier"`
	Result string `json:"result,omitempty" jsonschema:"outcome summary recorded on completion"`
}

type archiveTaskInput struct {
	TaskID string `json:"task_id" jsonschema:"required,id of the completed root task to archive"`
}

type archiveOutput struct {
	ArchivedCount int      `json:"archived_count"`
	ArchivedIDs   []string `json:"archived_ids,omitempty"`
	Message       string   `json:"message"`
}

type autoArchiveInput struct{}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_task",
		Description: "Get task details by ID. Returns the full task object including completion state, priority, and blocking edges.",
	}, s.handleGetTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_tasks",
		Description: "List tasks with optional completion and parent filters. Returns an array of task summaries sorted by id.",
	}, s.handleListTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "create_task",
		Description: "Create a new task, optionally under a parent. Returns the created task.",
	}, s.handleCreateTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "complete_task",
		Description: "Mark a task as completed, recording an optional result summary.",
	}, s.handleCompleteTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "archive_task",
		Description: "Archive a completed root task and its subtree into compact archive records. Fails if any descendant or ancestor is still pending.",
	}, s.handleArchiveTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "auto_archive",
		Description: "Run the auto-archive sweep using the configured age and keep-recent thresholds. A no-op unless auto-archive is enabled.",
	}, s.handleAutoArchive)
}

// --- Tool handlers ---

func (s *Server) handleGetTask(_ context.Context, _ *gomcp.CallToolRequest, input getTaskInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), taskOutput{}, nil
	}

	task, err := s.taskMgr.GetTask(input.TaskID)
	if err != nil {
		return errorResult(fmt.Sprintf("getting task %s: %s", input.TaskID, err)), taskOutput{}, nil
	}

	return nil, taskToOutput(task), nil
}

func (s *Server) handleListTasks(_ context.Context, _ *gomcp.CallToolRequest, input listTasksInput) (*gomcp.CallToolResult, listTasksOutput, error) {
	tasks, err := s.taskMgr.GetAllTasks()
	if err != nil {
		return errorResult(fmt.Sprintf("listing tasks: %s", err)), listTasksOutput{}, nil
	}

	out := listTasksOutput{Tasks: []taskOutput{}}
	for _, t := range tasks {
		if input.Completed != nil && t.Completed != *input.Completed {
			continue
		}
		if input.ParentID != "" && t.ParentID != input.ParentID {
			continue
		}
		out.Tasks = append(out.Tasks, taskToOutput(t))
	}
	out.Count = len(out.Tasks)

	return nil, out, nil
}

func (s *Server) handleCreateTask(_ context.Context, _ *gomcp.CallToolRequest, input createTaskInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.Description == "" {
		return errorResult("description is required"), taskOutput{}, nil
	}

	task, err := s.taskMgr.CreateTask(core.CreateTaskInput{
		Description: input.Description,
		Context:     input.Context,
		ParentID:    input.ParentID,
		Priority:    input.Priority,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("creating task: %s", err)), taskOutput{}, nil
	}

	return nil, taskToOutput(task), nil
}

func (s *Server) handleCompleteTask(_ context.Context, _ *gomcp.CallToolRequest, input completeTaskInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), taskOutput{}, nil
	}

	task, err := s.taskMgr.CompleteTask(input.TaskID, input.Result)
	if err != nil {
		return errorResult(fmt.Sprintf("completing task %s: %s", input.TaskID, err)), taskOutput{}, nil
	}

	return nil, taskToOutput(task), nil
}

func (s *Server) handleArchiveTask(_ context.Context, _ *gomcp.CallToolRequest, input archiveTaskInput) (*gomcp.CallToolResult, archiveOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), archiveOutput{}, nil
	}

	result, err := s.taskMgr.ArchiveTask(input.TaskID)
	if err != nil {
		return errorResult(fmt.Sprintf("archiving task %s: %s", input.TaskID, err)), archiveOutput{}, nil
	}

	out := archiveOutput{
		ArchivedCount: result.ArchivedCount,
		ArchivedIDs:   result.ArchivedIDs,
		Message:       fmt.Sprintf("archived task %s and its subtree", input.TaskID),
	}
	return nil, out, nil
}

func (s *Server) handleAutoArchive(_ context.Context, _ *gomcp.CallToolRequest, _ autoArchiveInput) (*gomcp.CallToolResult, archiveOutput, error) {
	result, err := s.taskMgr.AutoArchive(s.archiveCfg)
	if err != nil {
		return errorResult(fmt.Sprintf("auto-archiving: %s", err)), archiveOutput{}, nil
	}

	out := archiveOutput{
		ArchivedCount: result.ArchivedCount,
		ArchivedIDs:   result.ArchivedIDs,
		Message:       fmt.Sprintf("auto-archived %d root task(s)", result.ArchivedCount),
	}
	return nil, out, nil
}

// --- Helpers ---

func taskToOutput(t *models.Task) taskOutput {
	out := taskOutput{
		ID:          t.ID,
		ParentID:    t.ParentID,
		Description: t.Description,
		Context:     t.Context,
		Priority:    t.Priority,
		Completed:   t.Completed,
		Result:      t.Result,
		Created:     t.CreatedAt.Format(time.RFC3339),
		Updated:     t.UpdatedAt.Format(time.RFC3339),
		BlockedBy:   t.BlockedBy,
		Blocks:      t.Blocks,
	}
	if t.CompletedAt != nil {
		out.CompletedAt = t.CompletedAt.Format(time.RFC3339)
	}
	return out
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
