package config

// ExampleYAML is written by `storysnap config init`.
const ExampleYAML = `# storysnap configuration file
#
# Every option can also be set through STORYSNAP_* environment variables,
# for example STORYSNAP_USERNAME, STORYSNAP_OUTPUT_DIR or STORYSNAP_NATS_URL.

story:
  # Account whose stories are captured (or pass it on the command line)
  username: ""
  # Explicit story URL; overrides username when set
  url: ""
  base_url: "https://www.instagram.com"
  # Upper bound on capture attempts per run
  max_stories: 50

browser:
  # playwright or rod
  driver: "playwright"
  # Persistent profile that keeps the login between runs
  profile_dir: "./chrome_profile"
  headless: false
  viewport_width: 1280
  viewport_height: 900
  args: ["--start-maximized"]
  stealth: true
  navigation_timeout: 60s
  navigation_retries: 3
  keep_open: 5s

capture:
  min_element_size: 150
  ready_poll_attempts: 20
  ready_poll_interval: 500ms
  seek_settle: 600ms
  clip_width: 390
  clip_margin: 80
  # Mean brightness (0-255) below which a capture is discarded as blank
  brightness_threshold: 20
  min_file_size: 50000
  interstitial_settle: 3s
  advance_settle: 2s
  # Consecutive "view story" dismissals tolerated without a capture
  max_interstitials: 10

session:
  login_timeout: 180s
  login_settle: 2s
  home_settle: 2s
  story_settle: 3s
  # Save Instagram cookies to the system keychain after a run
  cookie_vault: true
  account: "default"

output:
  base_directory: "./pics"
  date_layout: "2006-01-02"

gallery:
  root: "."
  index_file: "gallery-data.json"
  listen_addr: ":8080"

events:
  # Leave empty to disable publishing
  nats_url: ""
  subject: "storysnap.slides"

logging:
  # debug, info, warn, error
  level: "info"
  file: ""
`
