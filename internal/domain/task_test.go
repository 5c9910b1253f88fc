package domain

import "testing"

func TestTaskPayloadValidate(t *testing.T) {
	cases := []struct {
		taskType TaskType
		payload  TaskPayload
		wantErr  bool
	}{
		{TaskFetch, TaskPayload{Fetch: &FetchPayload{SourceID: "nu-nl"}}, false},
		{TaskVerify, TaskPayload{Verify: &VerifyPayload{ClusterID: "c1"}}, false},
		{TaskSynthesize, TaskPayload{Synthesize: &SynthesizePayload{ClusterID: "c1"}}, false},
		{TaskDeliver, TaskPayload{Deliver: &DeliverPayload{URL: "https://example.test"}}, false},
		{TaskFetch, TaskPayload{Verify: &VerifyPayload{ClusterID: "c1"}}, true},
		{TaskVerify, TaskPayload{}, true},
		{TaskType("unknown"), TaskPayload{Fetch: &FetchPayload{}}, true},
	}
	for _, tc := range cases {
		err := tc.payload.Validate(tc.taskType)
		if tc.wantErr && err == nil {
			t.Fatalf("expected error for type %q with payload %+v", tc.taskType, tc.payload)
		}
		if !tc.wantErr && err != nil {
			t.Fatalf("unexpected error for type %q: %v", tc.taskType, err)
		}
	}
}

func TestTaskTerminal(t *testing.T) {
	for status, terminal := range map[TaskStatus]bool{
		TaskPending: false,
		TaskRunning: false,
		TaskDone:    true,
		TaskFailed:  true,
	} {
		task := Task{Status: status}
		if task.Terminal() != terminal {
			t.Fatalf("Terminal() for %q = %v", status, task.Terminal())
		}
	}
}
