package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gocv.io/x/gocv"

	targettrack "github.com/swdee/go-targettrack"
	"github.com/swdee/go-targettrack/appearance"
	"github.com/swdee/go-targettrack/render"
	"github.com/swdee/go-targettrack/tracker"
)

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	vidFile := flag.String("i", "../data/follow.mp4", "Video file to run tracking on")
	detFile := flag.String("d", "../data/follow-detections.dat", "Data file containing per frame object detections")
	outFile := flag.String("o", "", "Optional video file to write annotated output to")
	classID := flag.Int("c", 0, "Class ID of the object to follow")
	strategy := flag.String("s", "hybrid", "Matching strategy [id|spatial|hybrid]")
	reidThresh := flag.Float64("r", 0.75, "Appearance similarity [0.0-1.0], a value greater than defines a re-identification match")
	flag.Parse()

	detections, err := ParseDetections(*detFile)

	if err != nil {
		log.Fatal("Error parsing detections: ", err)
	}

	video, err := gocv.VideoCaptureFile(*vidFile)

	if err != nil {
		log.Fatal("Error opening video file: ", err)
	}

	defer video.Close()

	fps := video.Get(gocv.VideoCaptureFPS)

	if fps <= 0 {
		fps = 30
	}

	cfg := tracker.DefaultConfig()
	cfg.FPS = float32(fps)

	switch *strategy {
	case "id":
		cfg.Strategy = tracker.StrategyIDOnly
	case "spatial":
		cfg.Strategy = tracker.StrategySpatial
	case "hybrid":
		cfg.Strategy = tracker.StrategyHybrid
	default:
		log.Fatal("Unknown strategy: ", *strategy)
	}

	mgr := tracker.NewTrackingStateManager(cfg)

	// enable appearance based recovery, memory window of 10 seconds of
	// frames capped at 50 lost objects
	mgr.UseReID(
		appearance.NewExtractor(appearance.Hybrid),
		appearance.NewMemory(int(fps)*10, 50, 0.1),
		float32(*reidThresh),
	)

	board := targettrack.NewStateBoard()

	// log the published target state once a second, this stands in for
	// the follower/telemetry consumers reading the board
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if s, ok := board.Latest(); ok {
					log.Printf("frame=%d active=%v conf=%.2f center=(%.2f,%.2f) vel=(%.1f,%.1f)",
						s.Frame, s.Active, s.Confidence,
						s.NormCenterX, s.NormCenterY,
						s.VelocityX, s.VelocityY)
				}
			}
		}
	}()

	var writer *gocv.VideoWriter

	font := render.DefaultFont()
	style := render.DefaultTargetStyle()

	img := gocv.NewMat()
	defer img.Close()

	frameNum := 0

	for {
		if ok := video.Read(&img); !ok || img.Empty() {
			break
		}

		frameNum++

		if writer == nil && *outFile != "" {
			writer, err = gocv.VideoWriterFile(*outFile, "avc1", fps,
				img.Cols(), img.Rows(), true)

			if err != nil {
				log.Fatal("Error opening video writer: ", err)
			}

			defer writer.Close()
		}

		dets := detections[frameNum]

		// select the first sufficiently confident detection of the
		// wanted class as the target
		if !mgr.GetTrackingInfo().Active && !mgr.NeedReselection() {
			for _, det := range dets {
				if det.ClassID == *classID && det.Confidence >= 0.5 {
					mgr.StartTracking(det.TrackID, det.ClassID, det.Rect,
						det.Confidence)
					log.Printf("selected target id=%d at frame %d",
						det.TrackID, frameNum)
					break
				}
			}
		}

		mgr.UpdateTrackingWithFrame(dets, img)

		info := mgr.GetTrackingInfo()

		state := targettrack.NewTargetState(frameNum,
			info.Rect.TLX(), info.Rect.TLY(), info.Rect.BRX(), info.Rect.BRY(),
			img.Cols(), img.Rows())
		state.Active = info.Active
		state.NeedReselection = info.NeedReselection
		state.FramesSinceDetection = info.FramesSinceDetection
		state.Confidence = info.Confidence
		state.VelocityX = info.VelocityX
		state.VelocityY = info.VelocityY
		state.HasVelocity = info.HasVelocity

		if err := board.Publish(state); err != nil {
			log.Printf("dropped state for frame %d: %v", frameNum, err)
		}

		if info.NeedReselection {
			log.Printf("target lost at frame %d, reselection required", frameNum)
			mgr.Clear()
		}

		if writer != nil {
			render.Target(&img, info, mgr.History().Snapshot(), font, style)
			writer.Write(img)
		}
	}

	close(done)

	log.Printf("processed %d frames", frameNum)
}

// ParseDetections reads the detections data file.  Each line holds one
// detection as whitespace separated values:
//
//	<frame> <trackID> <classID> <x1> <y1> <x2> <y2> <confidence>
func ParseDetections(path string) (map[int][]tracker.Detection, error) {

	f, err := os.Open(path)

	if err != nil {
		return nil, err
	}

	defer f.Close()

	detections := make(map[int][]tracker.Detection)
	scanner := bufio.NewScanner(f)
	lineNum := 0

	for scanner.Scan() {

		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)

		if len(fields) != 8 {
			return nil, fmt.Errorf("line %d: expected 8 fields, got %d",
				lineNum, len(fields))
		}

		vals := make([]float64, 8)

		for i, field := range fields {
			vals[i], err = strconv.ParseFloat(field, 64)

			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
		}

		frame := int(vals[0])

		detections[frame] = append(detections[frame], tracker.NewDetection(
			int(vals[1]), int(vals[2]),
			tracker.GenerateRectByTlbr(tracker.Tlbr{
				float32(vals[3]), float32(vals[4]),
				float32(vals[5]), float32(vals[6]),
			}),
			float32(vals[7]),
		))
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return detections, nil
}
