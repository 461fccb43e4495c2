package protocol

import (
	"encoding/json"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := map[string]struct {
		in      string
		want    Kind
		wantErr bool
	}{
		"join":         {in: `{"type":"joinRoom","roomId":"AB12"}`, want: KindJoinRoom},
		"control":      {in: `{"type":"pause","position":1}`, want: KindPause},
		"missing type": {in: `{"roomId":"AB12"}`, wantErr: true},
		"not json":     {in: `pause`, wantErr: true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := KindOf([]byte(tc.in))
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Fatalf("kind = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestIsControl(t *testing.T) {
	for _, k := range []Kind{KindPlay, KindPause, KindSeek, KindMute, KindUnmute, KindSyncVideo} {
		if !k.IsControl() {
			t.Fatalf("%s should be a control kind", k)
		}
	}
	for _, k := range []Kind{KindJoinRoom, KindLeaveRoom, KindPing, KindRoomUsers, KindPong} {
		if k.IsControl() {
			t.Fatalf("%s should not be a control kind", k)
		}
	}
}

func TestRelayedShape(t *testing.T) {
	playing := true
	cases := map[string]struct {
		in   Control
		want map[string]any
	}{
		"play": {
			in:   NewPlay("AB12", 10, 1.5),
			want: map[string]any{"type": "play", "position": 10.0, "speed": 1.5},
		},
		"pause drops speed": {
			in:   Control{Type: KindPause, RoomID: "AB12", Position: 42.5, Speed: 2, Playing: &playing},
			want: map[string]any{"type": "pause", "position": 42.5},
		},
		"seek to zero keeps position": {
			in:   NewSeek("AB12", 0),
			want: map[string]any{"type": "seek", "position": 0.0},
		},
		"play from zero": {
			in:   NewPlay("AB12", 0, 1),
			want: map[string]any{"type": "play", "position": 0.0, "speed": 1.0},
		},
		"syncVideo replay at zero": {
			in:   Control{Type: KindSyncVideo, Position: 0, Speed: 1, Playing: new(bool)},
			want: map[string]any{"type": "syncVideo", "position": 0.0, "speed": 1.0, "playing": false},
		},
		"mute is bare": {
			in:   Control{Type: KindMute, RoomID: "AB12", Position: 3},
			want: map[string]any{"type": "mute"},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			b, err := Encode(tc.in.Relayed())
			if err != nil {
				t.Fatal(err)
			}
			got := map[string]any{}
			if err := json.Unmarshal(b, &got); err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for k, v := range tc.want {
				if got[k] != v {
					t.Fatalf("%s = %v, want %v (full %v)", k, got[k], v, got)
				}
			}
		})
	}
}

func TestNewMute(t *testing.T) {
	if NewMute("AB12", true).Type != KindMute || NewMute("AB12", false).Type != KindUnmute {
		t.Fatal("NewMute picks the wrong kind")
	}
}

func TestClientFrameShape(t *testing.T) {
	b, err := Encode(NewPause("AB12", 0))
	if err != nil {
		t.Fatal(err)
	}
	if got := string(b); got != `{"type":"pause","roomId":"AB12","position":0}` {
		t.Fatalf("pause = %s", got)
	}
	b, _ = Encode(NewMute("AB12", false))
	if got := string(b); got != `{"type":"unmute","roomId":"AB12"}` {
		t.Fatalf("unmute = %s", got)
	}

	var back Control
	if err := json.Unmarshal([]byte(`{"type":"seek","roomId":"AB12","position":0}`), &back); err != nil {
		t.Fatal(err)
	}
	if back.Type != KindSeek || back.RoomID != "AB12" || back.Position != 0 {
		t.Fatalf("decoded = %+v", back)
	}
}
