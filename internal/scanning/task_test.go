package scanning

import (
	"context"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func jsonString(s string) string {
	b, err := json.Marshal(s)
	Expect(err).NotTo(HaveOccurred())
	return string(b)
}

// fakeRecognizer reports the given steps and returns text or err.
type fakeRecognizer struct {
	steps []float64
	text  string
	err   error
	block bool
}

func (f *fakeRecognizer) Recognize(ctx context.Context, imageData []byte, contentType string, progress ProgressFunc) (string, error) {
	for _, s := range f.steps {
		progress(s)
	}
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.text, f.err
}

var _ = Describe("Task", func() {
	collect := func(t *Task) []float64 {
		var got []float64
		for p := range t.Progress() {
			got = append(got, p)
		}
		return got
	}

	When("recognition succeeds", func() {
		It("should stream monotonic progress ending at one", func() {
			task := StartRecognition(context.Background(), &fakeRecognizer{
				steps: []float64{0, 0.5, 0.3, 1.5},
				text:  "hello",
			}, nil, "")

			Expect(collect(task)).To(Equal([]float64{0, 0.5, 1}))
			text, err := task.Wait()
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("hello"))
		})
	})

	When("recognition fails", func() {
		It("should return the error", func() {
			task := StartRecognition(context.Background(), &fakeRecognizer{err: errors.New("boom")}, nil, "")
			_, err := task.Wait()
			Expect(err).To(MatchError("boom"))
		})
	})

	When("nobody reads progress", func() {
		It("should still complete", func() {
			steps := make([]float64, 100)
			for i := range steps {
				steps[i] = float64(i) / 100
			}
			task := StartRecognition(context.Background(), &fakeRecognizer{steps: steps, text: "ok"}, nil, "")
			text, err := task.Wait()
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("ok"))
		})
	})

	When("the task is cancelled", func() {
		It("should stop with a context error", func() {
			task := StartRecognition(context.Background(), &fakeRecognizer{block: true}, nil, "")
			task.Cancel()
			_, err := task.Wait()
			Expect(err).To(MatchError(context.Canceled))
			Eventually(task.Progress()).Should(BeClosed())
		})
	})
})
