package timer_test

import (
	"bytes"
	"math/rand"
	"strconv"
	"strings"
	"testing/quick"
	"time"

	"github.com/renproject/qbft/timer"
	"github.com/sirupsen/logrus"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Timer Opts", func() {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	Context("Linear Timer", func() {
		Specify("with default options", func() {
			defaultOpts := timer.DefaultOptions()
			Expect(defaultOpts.Timeout).To(Equal(20 * time.Second))
			Expect(defaultOpts.TimeoutScaling).To(Equal(0.5))
			Expect(defaultOpts.MaxTimeout).To(Equal(time.Duration(0)))
		})

		Specify("with log level", func() {
			loop := func() bool {
				level := logrus.Level(r.Intn(7))
				opts := timer.DefaultOptions().WithLogLevel(level)

				entry := opts.Logger.(*logrus.Entry)
				Expect(entry.Logger.GetLevel()).To(Equal(level))
				Expect(entry.Data).To(HaveKeyWithValue("pkg", "timer"))
				return true
			}
			Expect(quick.Check(loop, nil)).To(Succeed())
		})

		Specify("with log output", func() {
			loop := func() bool {
				buf := bytes.NewBuffer([]byte{})
				opts := timer.DefaultOptions().WithLogOutput(buf)

				n := r.Int()
				opts.Logger.Printf("%d", n)
				Expect(strings.Contains(buf.String(), strconv.Itoa(n))).To(BeTrue())
				Expect(strings.Contains(buf.String(), "lib=qbft")).To(BeTrue())
				Expect(func() {
					opts.Logger.Panicln("some reason")
				}).To(Panic())

				return true
			}
			Expect(quick.Check(loop, nil)).To(Succeed())
		})

		Specify("with log level and output", func() {
			buf := bytes.NewBuffer([]byte{})
			opts := timer.DefaultOptions().
				WithLogOutput(buf).
				WithLogLevel(logrus.WarnLevel)

			opts.Logger.Infof("hidden")
			opts.Logger.Warnf("shown")
			Expect(buf.String()).ToNot(ContainSubstring("hidden"))
			Expect(buf.String()).To(ContainSubstring("shown"))
			Expect(buf.String()).To(ContainSubstring("com=timer"))
		})

		Specify("with logger", func() {
			logger := logrus.New().WithField("node", "a")
			opts := timer.DefaultOptions().WithLogger(logger)
			Expect(opts.Logger).To(Equal(logger))
		})

		Specify("round timeouts", func() {
			opts := timer.DefaultOptions().
				WithTimeout(2 * time.Second).
				WithTimeoutScaling(0.5)
			Expect(opts.RoundTimeout(0)).To(Equal(2 * time.Second))
			Expect(opts.RoundTimeout(1)).To(Equal(3 * time.Second))
			Expect(opts.RoundTimeout(4)).To(Equal(6 * time.Second))
			Expect(opts.WithMaxTimeout(5 * time.Second).RoundTimeout(4)).To(Equal(5 * time.Second))
		})

		Specify("with timeout", func() {
			loop := func() bool {
				timeout := time.Duration(r.Intn(100)) * time.Second
				opts := timer.DefaultOptions().WithTimeout(timeout)
				Expect(opts.Timeout).To(Equal(timeout))
				return true
			}
			Expect(quick.Check(loop, nil)).To(Succeed())
		})

		Specify("with timeout scaling", func() {
			loop := func() bool {
				timeoutScaling := r.Float64()
				opts := timer.DefaultOptions().WithTimeoutScaling(timeoutScaling)
				Expect(opts.TimeoutScaling).To(Equal(timeoutScaling))
				return true
			}
			Expect(quick.Check(loop, nil)).To(Succeed())
		})

		Specify("with max timeout", func() {
			loop := func() bool {
				maxTimeout := time.Duration(r.Intn(100)) * time.Second
				opts := timer.DefaultOptions().WithMaxTimeout(maxTimeout)
				Expect(opts.MaxTimeout).To(Equal(maxTimeout))
				return true
			}
			Expect(quick.Check(loop, nil)).To(Succeed())
		})
	})
})
