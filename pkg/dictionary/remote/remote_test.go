package remote

import (
	"context"
	"errors"
	"net/http"
	"os"
	"reflect"
	"testing"

	"github.com/h2non/gock"
	log "github.com/sirupsen/logrus"

	"censorship/pkg/censor"
	"censorship/pkg/dictionary"
)

const testServiceURL = "http://dictionary.local"

func TestMain(m *testing.M) {
	log.SetLevel(log.PanicLevel)
	exitCode := m.Run()
	os.Exit(exitCode)
}

func TestSource_Dictionary(t *testing.T) {
	defer gock.Off()

	gock.New(testServiceURL).
		Get("/dictionary").
		MatchHeader("Accept", "application/json").
		Reply(http.StatusOK).
		JSON(map[string]any{
			"terms":     []any{"badword", map[string]string{"text": "ass", "boundary": "always"}},
			"whitelist": []string{"classic"},
		})

	got, err := New(testServiceURL + "/dictionary").Dictionary(context.Background())
	if err != nil {
		t.Fatalf("Dictionary() returned error: %v", err)
	}

	want := dictionary.Dictionary{
		Terms:     []censor.Term{{Text: "badword"}, {Text: "ass", Boundary: censor.BoundaryAlways}},
		Whitelist: []string{"classic"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("want %+v, got %+v", want, got)
	}
	if !gock.IsDone() {
		t.Error("want all mocks consumed")
	}
}

func TestSource_Dictionary_errors(t *testing.T) {
	defer gock.Off()

	gock.New(testServiceURL).Get("/missing").Reply(http.StatusNotFound)
	gock.New(testServiceURL).Get("/broken").Reply(http.StatusInternalServerError)
	gock.New(testServiceURL).Get("/garbage").Reply(http.StatusOK).BodyString("<html></html>")

	src := New(testServiceURL + "/missing")
	var nf *ErrNotFound
	if _, err := src.Dictionary(context.Background()); !errors.As(err, &nf) {
		t.Errorf("want *ErrNotFound, got %v", err)
	}

	src = New(testServiceURL + "/broken")
	if _, err := src.Dictionary(context.Background()); err == nil || errors.As(err, &nf) {
		t.Errorf("want plain error for status 500, got %v", err)
	}

	src = New(testServiceURL + "/garbage")
	if _, err := src.Dictionary(context.Background()); !errors.Is(err, dictionary.ErrUnknownFormat) {
		t.Errorf("want ErrUnknownFormat, got %v", err)
	}
}

func TestSource_Apply(t *testing.T) {
	defer gock.Off()

	gock.New(testServiceURL).
		Get("/dictionary").
		Reply(http.StatusOK).
		JSON([]string{"badword"})

	c := censor.New()
	if err := dictionary.Apply(context.Background(), New(testServiceURL+"/dictionary"), c); err != nil {
		t.Fatalf("Apply() returned error: %v", err)
	}

	res, _ := c.Censor("a badword", false)
	if res.Clean != "a *******" {
		t.Errorf("want %q, got %q", "a *******", res.Clean)
	}
}
